package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/agent"
	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/ai/gemini"
	"github.com/spigell/fit-agent/internal/logger"
	"github.com/spigell/fit-agent/internal/secrets"
	"github.com/spigell/fit-agent/internal/skillgraph"
	"github.com/spigell/fit-agent/internal/skills"
)

const (
	geminiKeyEnv   = "GEMINI_API_KEY"
	agentKeyEnv    = "AGENT_API_KEY"
	hhTokenEnv     = "HH_TOKEN"
	hhTokenFileEnv = "HH_TOKEN_FILE"
)

func loadGraph(path string) (*skillgraph.Graph, error) {
	if path = strings.TrimSpace(path); path != "" {
		return skillgraph.LoadFile(path)
	}

	return skillgraph.Default()
}

// services are the wired agent and the parsers sharing its Gemini client.
type services struct {
	agent   *agent.Agent
	resumes *gemini.ResumeParser
	jobs    *gemini.JobParser
}

// newServices wires the skill pipeline and the Gemini collaborators into an Agent and parsers.
func newServices(ctx context.Context, config *Config, log *zap.Logger) (*services, error) {
	graph, err := loadGraph(config.SkillGraphFile)
	if err != nil {
		return nil, err
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "Gemini API key",
		File:  config.AI.Gemini.APIKeyFile,
		Value: config.AI.Gemini.APIKey,
		Env:   geminiKeyEnv,
	})
	if err != nil {
		return nil, err
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	generator := gemini.NewGenerator(client, config.AI.Gemini, log)

	forbidden := config.AI.Rewrite.ForbiddenWords
	if len(forbidden) == 0 {
		forbidden = ai.DefaultForbiddenWords
	}

	collab := agent.Collaborators{
		Similarity:   gemini.NewEmbedder(client, config.AI.Gemini, log),
		Rewriter:     gemini.NewRewriter(generator, forbidden, log),
		CoverLetters: gemini.NewCoverLetterWriter(generator),
		Model:        generator.ModelInfo(),
	}

	evaluator, err := agent.New(skills.NewPipeline(graph, log), collab, config.Decision, log)
	if err != nil {
		return nil, err
	}

	log.Info("agent is configured", append(
		logger.CommonFields(gemini.Provider, generator.Model()),
		zap.Int("skill_nodes", graph.Len()),
	)...)

	return &services{
		agent:   evaluator,
		resumes: gemini.NewResumeParser(generator, log),
		jobs:    gemini.NewJobParser(generator, log),
	}, nil
}

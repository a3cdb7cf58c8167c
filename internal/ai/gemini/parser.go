package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/logger"
)

//go:embed resume_prompt.md
var resumePrompt string

//go:embed job_prompt.md
var jobPrompt string

// ErrEmptyText is returned when there is no text to parse.
var ErrEmptyText = errors.New("text to parse is empty")

// ResumeParser turns free text resumes into ai.ParsedResume through Gemini.
type ResumeParser struct {
	generator textGenerator
	logger    *zap.Logger
}

// NewResumeParser builds a ResumeParser.
func NewResumeParser(generator textGenerator, log *zap.Logger) *ResumeParser {
	return &ResumeParser{generator: generator, logger: logger.OrNop(log)}
}

// ParseResume extracts the summary, skills and experience bullets. Lists are never nil.
func (p *ResumeParser) ParseResume(ctx context.Context, text string) (*ai.ParsedResume, error) {
	var parsed ai.ParsedResume
	model, err := parseWith(ctx, p.generator, resumePrompt, "Resume:\n", text, &parsed)
	if err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}

	parsed.Summary = strings.TrimSpace(parsed.Summary)
	parsed.Skills = compact(parsed.Skills)
	parsed.Experience = compact(parsed.Experience)

	p.logger.Debug("resume parsed",
		zap.Int("skills", len(parsed.Skills)),
		zap.Int("experience", len(parsed.Experience)),
		zap.String(logger.FieldModel, model),
	)

	return &parsed, nil
}

// JobParser turns free text job descriptions into ai.ParsedJob through Gemini.
type JobParser struct {
	generator textGenerator
	logger    *zap.Logger
}

// NewJobParser builds a JobParser.
func NewJobParser(generator textGenerator, log *zap.Logger) *JobParser {
	return &JobParser{generator: generator, logger: logger.OrNop(log)}
}

// ParseJob extracts required and preferred skills, seniority and keywords. Lists are never nil.
func (p *JobParser) ParseJob(ctx context.Context, text string) (*ai.ParsedJob, error) {
	var parsed ai.ParsedJob
	model, err := parseWith(ctx, p.generator, jobPrompt, "Job description:\n", text, &parsed)
	if err != nil {
		return nil, fmt.Errorf("parse job description: %w", err)
	}

	parsed.RequiredSkills = compact(parsed.RequiredSkills)
	parsed.PreferredSkills = compact(parsed.PreferredSkills)
	parsed.Seniority = strings.ToLower(strings.TrimSpace(parsed.Seniority))
	parsed.Keywords = compact(parsed.Keywords)

	p.logger.Debug("job description parsed",
		zap.Int("required", len(parsed.RequiredSkills)),
		zap.Int("preferred", len(parsed.PreferredSkills)),
		zap.String(logger.FieldModel, model),
	)

	return &parsed, nil
}

func parseWith(ctx context.Context, generator textGenerator, prompt, label, text string, target any) (string, error) {
	if text = strings.TrimSpace(text); text == "" {
		return "", ErrEmptyText
	}

	gen, err := generator.Generate(ctx, prompt, label+text)
	if err != nil {
		return "", err
	}

	if err := json.Unmarshal([]byte(extractJSON(gen.Text)), target); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}

	return gen.Model.Model, nil
}

// compact trims items and drops blanks and case-insensitive duplicates.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

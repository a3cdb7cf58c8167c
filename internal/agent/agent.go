// Package agent evaluates a resume against a job posting: it runs the skill confidence pipeline,
// scores the result, asks the collaborators for a semantic score and decides whether to apply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/decision"
	"github.com/spigell/fit-agent/internal/logger"
	"github.com/spigell/fit-agent/internal/scoring"
	"github.com/spigell/fit-agent/internal/skills"
)

const defaultRewriteConfidence = 0.9

// Config tunes the decision step.
type Config struct {
	Thresholds        decision.Thresholds `mapstructure:",squash"`
	RewriteConfidence float64             `mapstructure:"rewrite-confidence"`
}

// DefaultConfig returns the standard thresholds and rewrite confidence.
func DefaultConfig() Config {
	return Config{Thresholds: decision.DefaultThresholds(), RewriteConfidence: defaultRewriteConfidence}
}

// Collaborators are the external services an evaluation calls.
type Collaborators struct {
	Similarity   ai.Similarity
	Rewriter     ai.Rewriter
	CoverLetters ai.CoverLetterWriter
	// Model is reported when no cover letter was generated.
	Model ai.ModelInfo
}

// Agent evaluates requests. It holds no per-request state and is safe for concurrent use.
type Agent struct {
	pipeline          *skills.Pipeline
	collab            Collaborators
	thresholds        decision.Thresholds
	rewriteConfidence float64
	logger            *zap.Logger
	newID             func() string
}

// New creates an Agent.
func New(pipeline *skills.Pipeline, collab Collaborators, cfg Config, log *zap.Logger) (*Agent, error) {
	if pipeline == nil || pipeline.Graph() == nil {
		return nil, errors.New("skill pipeline is required")
	}
	if collab.Similarity == nil || collab.Rewriter == nil || collab.CoverLetters == nil {
		return nil, errors.New("similarity, rewriter and cover letter collaborators are required")
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("decision thresholds: %w", err)
	}

	if cfg.RewriteConfidence == 0 {
		cfg.RewriteConfidence = defaultRewriteConfidence
	}
	if cfg.RewriteConfidence < 0 || cfg.RewriteConfidence > 1 {
		return nil, fmt.Errorf("rewrite confidence must be within (0, 1], got %v", cfg.RewriteConfidence)
	}

	return &Agent{
		pipeline:          pipeline,
		collab:            collab,
		thresholds:        cfg.Thresholds,
		rewriteConfidence: cfg.RewriteConfidence,
		logger:            logger.OrNop(log),
		newID:             uuid.NewString,
	}, nil
}

// Evaluate runs one evaluation. Invalid requests fail with ErrInvalidRequest before any work is
// done; semantic and cover letter failures abort with ErrCollaborator. A failed rewrite only
// keeps the decision at REVIEW.
func (a *Agent) Evaluate(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	modelInfo, err := a.modelInfo(req.Model)
	if err != nil {
		return nil, err
	}
	ctx = ai.WithPreferredModel(ctx, modelInfo.Model)

	resumeSkills := compact(req.ResumeSkills)
	requiredSkills := compact(req.RequiredSkills)

	resp := &Response{
		RequestID: a.newID(),
		ModelInfo: modelInfo,
	}
	log := logger.WithRequestID(a.logger, resp.RequestID)

	if !decision.IsTechDomain(resumeSkills) {
		a.gate(resp, requiredSkills)
		log.Info("resume rejected by domain gate", logger.DecisionFields(string(resp.Decision), resp.Scores.Final)...)
		return resp, nil
	}

	g := a.pipeline.Graph()
	profile := a.pipeline.Run(resumeSkills, req.ResumeExperience)
	required := g.Normalize(requiredSkills)
	preferred := g.Normalize(req.PreferredSkills)

	det := scoring.Score(profile.Skills, required, preferred)

	sim, err := a.collab.Similarity.Similarity(ctx, resumeText(resumeSkills), jobText(requiredSkills))
	if err != nil {
		return nil, fmt.Errorf("%w: semantic similarity: %w", ErrCollaborator, err)
	}
	semantic := ai.ScaleScore(sim)

	initial := a.thresholds.Initial(det.Score, semantic)
	outcome := initial
	resp.DecisionTrace = decision.Trace{Initial: initial}

	log.Debug("initial decision",
		zap.Int("deterministic", det.Score),
		zap.Int("semantic", semantic),
		zap.String(logger.FieldDecision, string(initial.Decision)),
		zap.Int(logger.FieldFinalScore, initial.FinalScore),
	)

	if !initial.State().Terminal() {
		bullets, improved := a.rewrite(ctx, log, req.ResumeExperience, requiredSkills, profile, det, required, preferred)
		resp.ImprovedResume = bullets

		if improved != nil {
			resp.Scores.ImprovedDeterministic = &improved.Score
			outcome, resp.DecisionTrace.PostRewrite = a.thresholds.Retry(initial, improved.Score, semantic)
		}
	}

	if outcome.Decision == decision.Apply {
		letter, err := a.collab.CoverLetters.CoverLetter(ctx, resumeSkills, requiredSkills)
		if err != nil {
			return nil, fmt.Errorf("%w: cover letter: %w", ErrCollaborator, err)
		}
		resp.CoverLetter = &letter.Text
		resp.ModelInfo = letter.Model
	}

	resp.Decision = outcome.Decision
	resp.Scores.Deterministic = det.Score
	resp.Scores.SemanticSkills = semantic
	resp.Scores.Final = outcome.FinalScore
	resp.SkillMatches = det.Matches
	resp.MissingSkills = det.MissingSkills
	resp.DebugSkillGraph = profile.Skills

	explanation := decision.Explain(outcome.Decision, g.DisplayNames(det.MissingSkills))
	resp.DecisionReason = explanation.Reason
	resp.ActionHint = explanation.ActionHint

	log.Info("evaluation finished", logger.DecisionFields(string(resp.Decision), resp.Scores.Final)...)

	return resp, nil
}

// modelInfo resolves the model reported for a request. A selector naming another provider is
// rejected because no collaborator can serve it.
func (a *Agent) modelInfo(selector string) (ai.ModelInfo, error) {
	info := a.collab.Model

	provider, model := ai.ParseModel(selector)
	if model == "" {
		return info, nil
	}
	if provider != "" && info.Provider != "" && !strings.EqualFold(provider, info.Provider) {
		return ai.ModelInfo{}, fmt.Errorf("%w: model provider %q is not supported", ErrInvalidRequest, provider)
	}

	info.Model = model
	info.FallbackUsed = false
	return info, nil
}

func (a *Agent) gate(resp *Response, requiredSkills []string) {
	outcome := decision.Gated()

	resp.Decision = outcome.Decision
	resp.Scores = Scores{Final: outcome.FinalScore}
	resp.SkillMatches = []scoring.MatchResult{}
	resp.MissingSkills = append([]string{}, requiredSkills...)
	resp.DecisionTrace = decision.Trace{Initial: outcome}

	explanation := decision.Explain(outcome.Decision, resp.MissingSkills)
	resp.DecisionReason = explanation.Reason
	resp.ActionHint = explanation.ActionHint
}

// rewrite asks the rewriter for better bullets and rescores the candidate with the required skills
// they mention. The returned bullets are never nil. The score is nil when nothing usable came back.
func (a *Agent) rewrite(
	ctx context.Context,
	log *zap.Logger,
	experience, requiredSkills []string,
	profile *skills.Result,
	det *scoring.Result,
	required, preferred []string,
) ([]string, *scoring.Result) {
	g := a.pipeline.Graph()

	bullets, err := a.collab.Rewriter.RewriteBullets(ctx, experience, g.DisplayNames(det.MissingSkills))
	if err != nil {
		log.Warn("resume rewrite failed, keeping review", zap.Error(err))
		bullets = nil
	}
	if len(bullets) == 0 {
		return []string{}, nil
	}

	mentioned := g.Normalize(decision.InferFromRewrite(bullets, requiredSkills))
	merged := skills.Merge(profile.Explicit, skills.ToConfidenceMap(mentioned, a.rewriteConfidence))
	improved := scoring.Score(merged, required, preferred)

	log.Debug("rescored rewritten resume",
		zap.Int("bullets", len(bullets)),
		zap.Strings("mentioned", mentioned),
		zap.Int("improved_deterministic", improved.Score),
	)

	return bullets, improved
}

// compact trims skill entries and drops blank ones.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func resumeText(names []string) string {
	return "Skills and experience:\n" + strings.Join(names, ", ")
}

func jobText(required []string) string {
	return "Required skills:\n" + strings.Join(required, ", ")
}

package agent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/decision"
	"github.com/spigell/fit-agent/internal/scoring"
	"github.com/spigell/fit-agent/internal/skills"
)

var (
	// ErrInvalidRequest marks requests rejected before any evaluation work.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCollaborator marks a hard failure of the semantic or cover letter collaborator.
	ErrCollaborator = errors.New("collaborator failed")
)

// Request is one resume evaluated against one job posting. Blank skill entries are ignored.
type Request struct {
	ResumeSkills     []string `json:"resumeSkills" validate:"required"`
	ResumeExperience []string `json:"resumeExperience"`
	RequiredSkills   []string `json:"requiredSkills" validate:"required"`
	PreferredSkills  []string `json:"preferredSkills"`
	// Model optionally overrides the preferred generation model, as "model" or "provider:model".
	Model string `json:"model,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks that the request carries the fields an evaluation needs. Errors wrap
// ErrInvalidRequest.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is empty", ErrInvalidRequest)
	}

	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return nil
}

// Scores holds every score an evaluation computed.
type Scores struct {
	Deterministic         int  `json:"deterministic"`
	SemanticSkills        int  `json:"semanticSkills"`
	Final                 int  `json:"final"`
	ImprovedDeterministic *int `json:"improvedDeterministic"`
}

// Response is the result of an evaluation.
type Response struct {
	RequestID       string                   `json:"requestId"`
	ModelInfo       ai.ModelInfo             `json:"modelInfo"`
	Decision        decision.Decision        `json:"decision"`
	DecisionReason  string                   `json:"decisionReason"`
	ActionHint      string                   `json:"actionHint"`
	Scores          Scores                   `json:"scores"`
	SkillMatches    []scoring.MatchResult    `json:"skillMatches"`
	MissingSkills   []string                 `json:"missingSkills"`
	ImprovedResume  []string                 `json:"improvedResume"`
	CoverLetter     *string                  `json:"coverLetter"`
	DecisionTrace   decision.Trace           `json:"decisionTrace"`
	DebugSkillGraph []skills.SkillConfidence `json:"debugSkillGraph,omitempty"`
}

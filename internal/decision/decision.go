// Package decision turns deterministic and semantic scores into an APPLY, REVIEW or SKIP decision
// and drives the single rewrite retry a REVIEW may get.
package decision

import (
	"fmt"
	"math"
)

// Decision is the final recommendation for a job posting.
type Decision string

const (
	Apply  Decision = "APPLY"
	Review Decision = "REVIEW"
	Skip   Decision = "SKIP"
)

// State is a state of the decision machine.
type State string

const (
	StateInitial State = "INITIAL"
	StateApply   State = State(Apply)
	StateReview  State = State(Review)
	StateSkip    State = State(Skip)
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateApply || s == StateSkip
}

// Thresholds configures score blending and decision cut-offs.
type Thresholds struct {
	Apply               int     `mapstructure:"apply-threshold"`
	ReviewSemantic      int     `mapstructure:"review-semantic-threshold"`
	ReviewDeterministic int     `mapstructure:"review-deterministic-threshold"`
	DeterministicWeight float64 `mapstructure:"deterministic-weight"`
	SemanticWeight      float64 `mapstructure:"semantic-weight"`
}

// DefaultThresholds returns the standard cut-offs: APPLY at 70, REVIEW when the semantic score is
// at least 70 and the deterministic score at least 20, blend 0.6/0.4.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Apply:               70,
		ReviewSemantic:      70,
		ReviewDeterministic: 20,
		DeterministicWeight: 0.6,
		SemanticWeight:      0.4,
	}
}

// Validate checks that the thresholds are usable.
func (t Thresholds) Validate() error {
	for name, v := range map[string]int{
		"apply-threshold":                t.Apply,
		"review-semantic-threshold":      t.ReviewSemantic,
		"review-deterministic-threshold": t.ReviewDeterministic,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be within [0, 100], got %d", name, v)
		}
	}

	if t.DeterministicWeight < 0 || t.SemanticWeight < 0 {
		return fmt.Errorf("score weights must not be negative")
	}
	if math.Abs(t.DeterministicWeight+t.SemanticWeight-1) > 1e-9 {
		return fmt.Errorf("score weights must sum to 1, got %.2f", t.DeterministicWeight+t.SemanticWeight)
	}

	return nil
}

// FinalScore blends the deterministic and semantic scores.
func (t Thresholds) FinalScore(deterministic, semantic int) int {
	return int(math.Round(float64(deterministic)*t.DeterministicWeight + float64(semantic)*t.SemanticWeight))
}

// Decide picks the decision for a pair of scores. It is a pure function of its inputs.
func (t Thresholds) Decide(deterministic, semantic int) Decision {
	switch {
	case t.FinalScore(deterministic, semantic) >= t.Apply:
		return Apply
	case semantic >= t.ReviewSemantic && deterministic >= t.ReviewDeterministic:
		return Review
	default:
		return Skip
	}
}

// Outcome is a decision together with the final score it was based on.
type Outcome struct {
	Decision   Decision `json:"decision"`
	FinalScore int      `json:"finalScore"`
}

// State returns the machine state the outcome corresponds to.
func (o Outcome) State() State {
	return State(o.Decision)
}

// Trace records the initial decision and, when a rewrite was scored, the post-rewrite one.
type Trace struct {
	Initial     Outcome  `json:"initial"`
	PostRewrite *Outcome `json:"postRewrite"`
}

// Initial is the transition out of INITIAL.
func (t Thresholds) Initial(deterministic, semantic int) Outcome {
	return Outcome{
		Decision:   t.Decide(deterministic, semantic),
		FinalScore: t.FinalScore(deterministic, semantic),
	}
}

// Gated is the transition out of INITIAL when the domain gate rejects the candidate.
func Gated() Outcome {
	return Outcome{Decision: Skip, FinalScore: 0}
}

// Retry is the transition out of REVIEW after a rewritten resume was rescored. It returns the
// post-rewrite outcome for the trace and the state the request ends in. Outcomes other than
// REVIEW are returned unchanged with a nil post-rewrite outcome.
func (t Thresholds) Retry(prev Outcome, improvedDeterministic, semantic int) (next Outcome, post *Outcome) {
	if prev.State().Terminal() {
		return prev, nil
	}

	final := t.FinalScore(improvedDeterministic, semantic)
	if final >= t.Apply {
		post = &Outcome{Decision: Apply, FinalScore: final}
		return *post, post
	}

	return prev, &Outcome{Decision: Review, FinalScore: final}
}

// Package scoring computes the deterministic 0-100 fit score of a confidence-weighted skill list
// against the skills a job requires.
package scoring

import (
	"math"
	"strings"

	"github.com/spigell/fit-agent/internal/skills"
)

// MatchType grades how a required skill was matched.
type MatchType string

const (
	// MatchExact is a full token match at full confidence.
	MatchExact MatchType = "EXACT"
	// MatchPartial covers every required token but through a skill held at lower confidence.
	MatchPartial MatchType = "PARTIAL"
	// MatchToken covers only some of the required tokens.
	MatchToken MatchType = "TOKEN"
	MatchNone  MatchType = "NONE"
)

// MatchResult describes the best resume skill found for one required skill.
type MatchResult struct {
	RequiredSkill string    `json:"required"`
	MatchedSkill  string    `json:"matchedWith"`
	MatchType     MatchType `json:"type"`
	Weight        float64   `json:"weight"`
}

// Result is the deterministic score with its per-requirement breakdown.
type Result struct {
	Score         int           `json:"score"`
	Matches       []MatchResult `json:"skillMatches"`
	MissingSkills []string      `json:"missingSkills"`
}

// Score matches every required skill against the resume skills using token overlap weighted by
// confidence and sums the per-requirement strengths into a 0-100 score. An empty requirement list
// scores 0. Preferred skills do not affect the score.
func Score(resume []skills.SkillConfidence, required, preferred []string) *Result {
	res := &Result{
		Matches:       make([]MatchResult, 0, len(required)),
		MissingSkills: make([]string, 0),
	}

	if len(required) == 0 {
		return res
	}

	per := 100 / float64(len(required))
	var total float64

	for _, req := range required {
		best, ok := bestMatch(resume, req)
		if !ok {
			res.MissingSkills = append(res.MissingSkills, req)
			continue
		}

		total += per * best.Weight
		res.Matches = append(res.Matches, best)
	}

	res.Score = clampScore(int(math.Round(total)))
	return res
}

func bestMatch(resume []skills.SkillConfidence, required string) (MatchResult, bool) {
	reqTokens := Tokens(required)
	if len(reqTokens) == 0 {
		return MatchResult{}, false
	}

	var (
		best      MatchResult
		bestRatio float64
	)

	for _, rs := range resume {
		ratio := overlapRatio(Tokens(rs.Skill), reqTokens)
		strength := ratio * clampConfidence(rs.Confidence)
		if strength > best.Weight {
			best = MatchResult{RequiredSkill: required, MatchedSkill: rs.Skill, Weight: strength}
			bestRatio = ratio
		}
	}

	if best.Weight <= 0 {
		return MatchResult{}, false
	}

	best.MatchType = classify(best.Weight, bestRatio)
	return best, true
}

func classify(strength, ratio float64) MatchType {
	switch {
	case strength >= 1:
		return MatchExact
	case ratio >= 1:
		return MatchPartial
	case ratio > 0:
		return MatchToken
	default:
		return MatchNone
	}
}

// Tokens splits a canonical skill id into lowercase whitespace tokens. Hyphens and underscores in
// ids separate tokens.
func Tokens(skill string) []string {
	s := strings.ToLower(strings.TrimSpace(skill))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Fields(s)
}

func overlapRatio(resumeTokens, requiredTokens []string) float64 {
	have := make(map[string]bool, len(resumeTokens))
	for _, t := range resumeTokens {
		have[t] = true
	}

	counted := make(map[string]bool, len(requiredTokens))
	shared := 0
	for _, t := range requiredTokens {
		if counted[t] {
			continue
		}
		counted[t] = true
		if have[t] {
			shared++
		}
	}

	return float64(shared) / float64(len(counted))
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, 1)
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

// Package skills turns a candidate's raw skills and experience bullets into a confidence-weighted
// skill list: explicit skills at full confidence plus skills inferred through the skill graph,
// adjusted by textual evidence and experience recency.
package skills

import (
	"math"
	"sort"

	"github.com/spigell/fit-agent/internal/skillgraph"
)

// Source tells where a skill confidence came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceInferred Source = "inferred"
)

// SkillConfidence is one entry of a merged skill list.
type SkillConfidence struct {
	Skill      string  `json:"skill"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Infer proposes skills implied by the explicit ones through a single hop over the graph edges.
// When several edges target the same skill the strongest weight wins. Inferred skills are never
// used as sources themselves.
func Infer(g *skillgraph.Graph, explicit []string) map[string]float64 {
	inferred := make(map[string]float64)
	if g == nil {
		return inferred
	}

	visited := make(map[string]bool, len(explicit))
	for _, id := range explicit {
		if visited[id] {
			continue
		}
		visited[id] = true

		for _, edge := range g.Outgoing(id) {
			if edge.Weight > inferred[edge.To] {
				inferred[edge.To] = clamp(edge.Weight)
			}
		}
	}

	return inferred
}

// Merge emits every explicit skill at confidence 1.0 followed by the inferred skills the candidate
// did not claim explicitly, ordered by id. An inferred entry for an explicit skill is discarded.
func Merge(explicit []string, inferred map[string]float64) []SkillConfidence {
	result := make([]SkillConfidence, 0, len(explicit)+len(inferred))
	claimed := make(map[string]bool, len(explicit))

	for _, id := range explicit {
		if claimed[id] {
			continue
		}
		claimed[id] = true
		result = append(result, SkillConfidence{Skill: id, Confidence: 1, Source: SourceExplicit})
	}

	ids := make([]string, 0, len(inferred))
	for id := range inferred {
		if !claimed[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		result = append(result, SkillConfidence{Skill: id, Confidence: clamp(inferred[id]), Source: SourceInferred})
	}

	return result
}

// ToConfidenceMap assigns the same confidence to every id.
func ToConfidenceMap(ids []string, confidence float64) map[string]float64 {
	m := make(map[string]float64, len(ids))
	for _, id := range ids {
		m[id] = clamp(confidence)
	}
	return m
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

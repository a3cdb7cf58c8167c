// Package skillgraph holds the hand-curated skill catalogue: canonical skills, their surface forms
// and the weighted implication edges between them. A Graph is immutable once built and can be
// shared by any number of concurrent evaluations.
package skillgraph

import (
	"errors"
	"fmt"
	"strings"
)

// SkillNode is a canonical skill together with the surface forms it is known by.
type SkillNode struct {
	ID          string   `yaml:"id" json:"id"`
	DisplayName string   `yaml:"name" json:"displayName"`
	Aliases     []string `yaml:"aliases" json:"aliases"`
	Domain      string   `yaml:"domain" json:"domain"`
}

// SkillEdge states that knowing From implies knowing To with the given strength.
type SkillEdge struct {
	From   string  `yaml:"from" json:"from"`
	To     string  `yaml:"to" json:"to"`
	Weight float64 `yaml:"weight" json:"weight"`
	Reason string  `yaml:"reason" json:"reason"`
}

// Graph is the read-only skill knowledge base.
type Graph struct {
	nodes    map[string]SkillNode
	order    []string
	edges    []SkillEdge
	outgoing map[string][]SkillEdge
	// folded surface form -> ids in catalogue order
	lookup map[string][]string
}

// New validates the catalogue and builds a Graph. Input slices are copied.
func New(nodes []SkillNode, edges []SkillEdge) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]SkillNode, len(nodes)),
		order:    make([]string, 0, len(nodes)),
		outgoing: make(map[string][]SkillEdge),
		lookup:   make(map[string][]string),
	}

	for _, node := range nodes {
		id := strings.TrimSpace(node.ID)
		if id == "" {
			return nil, errors.New("skill node id must not be empty")
		}
		if _, exists := g.nodes[id]; exists {
			return nil, fmt.Errorf("duplicate skill node %q", id)
		}

		node.ID = id
		node.Aliases = append([]string(nil), node.Aliases...)
		g.nodes[id] = node
		g.order = append(g.order, id)

		g.index(node.DisplayName, id)
		for _, alias := range node.Aliases {
			g.index(alias, id)
		}
	}

	for _, edge := range edges {
		if _, ok := g.nodes[edge.From]; !ok {
			return nil, fmt.Errorf("edge %s -> %s: unknown source skill", edge.From, edge.To)
		}
		if _, ok := g.nodes[edge.To]; !ok {
			return nil, fmt.Errorf("edge %s -> %s: unknown target skill", edge.From, edge.To)
		}
		if edge.Weight <= 0 || edge.Weight > 1 {
			return nil, fmt.Errorf("edge %s -> %s: weight %.2f is out of (0, 1]", edge.From, edge.To, edge.Weight)
		}

		g.edges = append(g.edges, edge)
		g.outgoing[edge.From] = append(g.outgoing[edge.From], edge)
	}

	return g, nil
}

func (g *Graph) index(form, id string) {
	key := fold(form)
	if key == "" {
		return
	}
	for _, existing := range g.lookup[key] {
		if existing == id {
			return
		}
	}
	g.lookup[key] = append(g.lookup[key], id)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Node returns the skill node with the given id.
func (g *Graph) Node(id string) (SkillNode, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Nodes returns all skill nodes in catalogue order.
func (g *Graph) Nodes() []SkillNode {
	nodes := make([]SkillNode, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns a copy of all implication edges.
func (g *Graph) Edges() []SkillEdge {
	return append([]SkillEdge(nil), g.edges...)
}

// Outgoing returns the edges leaving the given skill.
func (g *Graph) Outgoing(id string) []SkillEdge {
	return append([]SkillEdge(nil), g.outgoing[id]...)
}

// Len returns the number of skill nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Normalize maps raw skill strings to canonical skill ids. Matching is a case-insensitive exact
// comparison against display names and aliases. Strings matching no skill are dropped without
// error. The result holds each id once, in the order it was first matched.
func (g *Graph) Normalize(raw []string) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(raw))

	for _, skill := range raw {
		for _, id := range g.lookup[fold(skill)] {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids
}

// DisplayNames returns display names for the given ids. Unknown ids are returned as is.
func (g *Graph) DisplayNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if node, ok := g.nodes[id]; ok && node.DisplayName != "" {
			names = append(names, node.DisplayName)
			continue
		}
		names = append(names, id)
	}
	return names
}

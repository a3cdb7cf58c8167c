package skillgraph

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	defaultOnce  sync.Once
	defaultGraph *Graph
	defaultErr   error
)

type catalog struct {
	Nodes []SkillNode `yaml:"nodes"`
	Edges []SkillEdge `yaml:"edges"`
}

// Load builds a Graph from a YAML catalogue.
func Load(data []byte) (*Graph, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse skill catalogue: %w", err)
	}

	if len(c.Nodes) == 0 {
		return nil, fmt.Errorf("skill catalogue has no nodes")
	}

	return New(c.Nodes, c.Edges)
}

// LoadFile builds a Graph from a YAML catalogue on disk.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill catalogue %q: %w", path, err)
	}

	return Load(data)
}

// Default returns the embedded catalogue. It is parsed once per process.
func Default() (*Graph, error) {
	defaultOnce.Do(func() {
		defaultGraph, defaultErr = Load(defaultCatalog)
	})
	return defaultGraph, defaultErr
}

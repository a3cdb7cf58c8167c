package skills

import (
	"time"

	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/skillgraph"
)

// Stage describes the result of one pipeline stage.
type Stage struct {
	Name    string
	Initial int
	Left    int
}

// Result is the outcome of a pipeline run.
type Result struct {
	// Explicit holds canonical ids of the skills the candidate listed.
	Explicit []string
	// Inferred holds the adjusted confidences of graph-inferred skills, explicit ones included.
	Inferred map[string]float64
	// Skills is the merged list used for scoring.
	Skills []SkillConfidence
	Stages []Stage
}

// Pipeline runs normalize, infer, evidence, recency and merge in that order.
type Pipeline struct {
	graph  *skillgraph.Graph
	logger *zap.Logger
	now    func() time.Time
}

// NewPipeline creates a pipeline over the given graph. A nil logger disables logging.
func NewPipeline(g *skillgraph.Graph, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{graph: g, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for recency decay.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	cp := *p
	cp.now = now
	return &cp
}

// Graph returns the graph the pipeline runs on.
func (p *Pipeline) Graph() *skillgraph.Graph {
	return p.graph
}

// Run executes the pipeline for one candidate.
func (p *Pipeline) Run(rawSkills, bullets []string) *Result {
	res := &Result{}

	res.Explicit = p.graph.Normalize(rawSkills)
	res.record(p.logger, "normalize", len(rawSkills), len(res.Explicit))

	inferred := Infer(p.graph, res.Explicit)
	res.record(p.logger, "infer", len(res.Explicit), len(inferred))

	inferred = AdjustByEvidence(inferred, bullets)
	res.record(p.logger, "evidence", len(inferred), len(inferred))

	inferred = ApplyRecencyDecay(inferred, bullets, p.now())
	res.record(p.logger, "recency", len(inferred), len(inferred))

	res.Inferred = inferred
	res.Skills = Merge(res.Explicit, inferred)
	res.record(p.logger, "merge", len(res.Explicit)+len(inferred), len(res.Skills))

	return res
}

func (r *Result) record(logger *zap.Logger, name string, initial, left int) {
	r.Stages = append(r.Stages, Stage{Name: name, Initial: initial, Left: left})
	logger.Debug("skill pipeline stage",
		zap.String("name", name),
		zap.Int("initial", initial),
		zap.Int("left", left),
	)
}

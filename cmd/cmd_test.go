package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/fit-agent/internal/agent"
	"github.com/spigell/fit-agent/internal/decision"
	"github.com/spigell/fit-agent/internal/headhunter"
	"github.com/spigell/fit-agent/internal/skillgraph"
)

func TestDecodeConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	config, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, decision.DefaultThresholds(), config.Decision.Thresholds)
	assert.InDelta(t, 0.9, config.Decision.RewriteConfidence, 1e-9)
	assert.Equal(t, "gemini-2.5-flash", config.AI.Gemini.Model)
	assert.Equal(t, []string{"gemini-2.5-flash-lite"}, config.AI.Gemini.FallbackModels)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, 5, config.Server.Burst)
	assert.NotEmpty(t, config.AI.Rewrite.ForbiddenWords)
}

func TestDecodeConfig_FileAndEnvironment(t *testing.T) {
	t.Setenv("FIT_AGENT_DECISION_APPLY_THRESHOLD", "75")
	t.Setenv("FIT_AGENT_AI_GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("HH_TOKEN_FILE", "/run/secrets/hh")

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
skill-graph-file: skills.yaml
decision:
  apply-threshold: 80
  semantic-weight: 0.5
  deterministic-weight: 0.5
server:
  addr: 127.0.0.1:9090
`)))

	config, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "skills.yaml", config.SkillGraphFile)
	assert.Equal(t, 75, config.Decision.Thresholds.Apply, "environment wins over the file")
	assert.InDelta(t, 0.5, config.Decision.Thresholds.SemanticWeight, 1e-9)
	assert.Equal(t, 70, config.Decision.Thresholds.ReviewSemantic)
	assert.Equal(t, "gemini-2.5-pro", config.AI.Gemini.Model)
	assert.Equal(t, "127.0.0.1:9090", config.Server.Addr)
	assert.Equal(t, "/run/secrets/hh", config.Headhunter.TokenFile)
}

func TestReadRequests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"resumeSkills":["Go"],"requiredSkills":["Go","SQL"]}`), 0o600))

	stdin := strings.NewReader(`{"resumeSkills":["React"],"resumeExperience":["Built things"],"requiredSkills":["React"]}`)

	requests, err := readRequests(stdin, []string{file, stdinName})
	require.NoError(t, err)
	require.Len(t, requests, 2)

	assert.Equal(t, []string{"Go", "SQL"}, requests[0].RequiredSkills)
	assert.Equal(t, []string{"Built things"}, requests[1].ResumeExperience)

	_, err = readRequests(strings.NewReader("{}"), []string{stdinName, stdinName})
	assert.Error(t, err)

	_, err = readRequests(nil, []string{filepath.Join(dir, "missing.json")})
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"resumeSkills":`), 0o600))
	_, err = readRequests(nil, []string{bad})
	assert.ErrorContains(t, err, "decoding request")
}

type countingEvaluator struct {
	running atomic.Int32
	peak    atomic.Int32
	fail    string
}

func (e *countingEvaluator) Evaluate(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	n := e.running.Add(1)
	defer e.running.Add(-1)

	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	time.Sleep(5 * time.Millisecond)

	if req.RequiredSkills[0] == e.fail {
		return nil, errors.New("boom")
	}

	return &agent.Response{RequestID: req.RequiredSkills[0]}, ctx.Err()
}

func TestEvaluateAll(t *testing.T) {
	t.Parallel()

	requests := make([]*agent.Request, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		requests = append(requests, &agent.Request{ResumeSkills: []string{"Go"}, RequiredSkills: []string{id}})
	}

	t.Run("keeps request order", func(t *testing.T) {
		t.Parallel()

		ev := &countingEvaluator{}
		responses, err := evaluateAll(context.Background(), ev, requests, 3)
		require.NoError(t, err)
		require.Len(t, responses, len(requests))

		for i, resp := range responses {
			assert.Equal(t, requests[i].RequiredSkills[0], resp.RequestID)
		}
		assert.LessOrEqual(t, ev.peak.Load(), int32(3))
	})

	t.Run("first error is reported", func(t *testing.T) {
		t.Parallel()

		_, err := evaluateAll(context.Background(), &countingEvaluator{fail: "c"}, requests, 0)
		assert.ErrorContains(t, err, "request 3")
	})
}

func TestRequestFromHeadhunter(t *testing.T) {
	t.Parallel()

	details := &headhunter.ResumeDetails{
		SkillSet: []string{"Go", "Kubernetes"},
		Experience: []headhunter.Experience{
			{Company: "Acme", Position: "Engineer", Start: "2021-03-01", End: "2024-01-01", Description: "Ran clusters"},
		},
	}
	var vacancy headhunter.Vacancy
	require.NoError(t, json.Unmarshal([]byte(`{"id":"42","key_skills":[{"name":"Go"}]}`), &vacancy))

	req := requestFromHeadhunter(details, &vacancy, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{"Go", "Kubernetes"}, req.ResumeSkills)
	assert.Equal(t, []string{"Go"}, req.RequiredSkills)
	require.Len(t, req.ResumeExperience, 1)
	assert.Contains(t, req.ResumeExperience[0], "Engineer at Acme")
	require.NoError(t, req.Validate())
}

func TestPickResume(t *testing.T) {
	t.Parallel()

	single := &headhunter.Resumes{Items: []*headhunter.Resume{{ID: "1", Title: "Go developer"}}}
	many := &headhunter.Resumes{Items: []*headhunter.Resume{
		{ID: "1", Title: "Go developer"},
		{ID: "2", Title: "SRE"},
	}}

	resume, err := pickResume(single, "")
	require.NoError(t, err)
	assert.Equal(t, "1", resume.ID)

	resume, err = pickResume(many, "SRE")
	require.NoError(t, err)
	assert.Equal(t, "2", resume.ID)

	_, err = pickResume(many, "Designer")
	assert.ErrorContains(t, err, "not found")

	_, err = pickResume(&headhunter.Resumes{}, "")
	assert.Error(t, err)
}

func TestPrintGraph(t *testing.T) {
	t.Parallel()

	graph, err := skillgraph.Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printGraph(&buf, graph))

	reloaded, err := skillgraph.Load(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, graph.Len(), reloaded.Len())
	for _, node := range graph.Nodes() {
		got, ok := reloaded.Node(node.ID)
		require.True(t, ok, node.ID)
		assert.Equal(t, node.DisplayName, got.DisplayName)
	}
	assert.Equal(t, graph.Edges(), reloaded.Edges())
}

func TestLoadGraph(t *testing.T) {
	t.Parallel()

	graph, err := loadGraph("  ")
	require.NoError(t, err)
	assert.Positive(t, graph.Len())

	_, err = loadGraph(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

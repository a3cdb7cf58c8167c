package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/decision"
	"github.com/spigell/fit-agent/internal/scoring"
	"github.com/spigell/fit-agent/internal/skillgraph"
	"github.com/spigell/fit-agent/internal/skills"
)

type stubSimilarity struct {
	score float64
	err   error
	calls int
	a, b  string
}

func (s *stubSimilarity) Similarity(_ context.Context, a, b string) (float64, error) {
	s.calls++
	s.a, s.b = a, b
	return s.score, s.err
}

type stubRewriter struct {
	bullets []string
	err     error
	calls   int
	missing []string
}

func (s *stubRewriter) RewriteBullets(_ context.Context, _, missing []string) ([]string, error) {
	s.calls++
	s.missing = missing
	return s.bullets, s.err
}

type stubLetters struct {
	err      error
	calls    int
	model    string
	skills   []string
	required []string
}

func (s *stubLetters) CoverLetter(ctx context.Context, skills, required []string) (*ai.Generation, error) {
	s.calls++
	s.model = ai.PreferredModel(ctx)
	s.skills, s.required = skills, required
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Generation{
		Text:  "Dear hiring team",
		Model: ai.ModelInfo{Provider: "stub", Model: "fallback-model", FallbackUsed: true},
	}, nil
}

type fixture struct {
	agent    *Agent
	sim      *stubSimilarity
	rewriter *stubRewriter
	letters  *stubLetters
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, similarity float64) *fixture {
	t.Helper()

	g, err := skillgraph.Default()
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	pipeline := skills.NewPipeline(g, log).WithClock(func() time.Time {
		return time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	})

	f := &fixture{
		sim:      &stubSimilarity{score: similarity},
		rewriter: &stubRewriter{},
		letters:  &stubLetters{},
		logs:     logs,
	}

	f.agent, err = New(pipeline, Collaborators{
		Similarity:   f.sim,
		Rewriter:     f.rewriter,
		CoverLetters: f.letters,
		Model:        ai.ModelInfo{Provider: "stub", Model: "preferred-model"},
	}, DefaultConfig(), log)
	require.NoError(t, err)
	f.agent.newID = func() string { return "req-1" }

	return f
}

func reviewRequest() *Request {
	return &Request{
		ResumeSkills:     []string{"Next.js", "TypeScript"},
		ResumeExperience: []string{"Built scalable React apps in 2023"},
		RequiredSkills:   []string{"React", "Node.js"},
	}
}

func TestEvaluate_ReviewFlipsToApplyAfterRewrite(t *testing.T) {
	f := newFixture(t, 0.8)
	f.rewriter.bullets = []string{"Built React storefronts and supported Node.js services"}

	resp, err := f.agent.Evaluate(context.Background(), reviewRequest())
	require.NoError(t, err)

	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, decision.Apply, resp.Decision)
	assert.Equal(t, 50, resp.Scores.Deterministic)
	assert.Equal(t, 80, resp.Scores.SemanticSkills)
	assert.Equal(t, 86, resp.Scores.Final)
	require.NotNil(t, resp.Scores.ImprovedDeterministic)
	assert.Equal(t, 90, *resp.Scores.ImprovedDeterministic)

	assert.Equal(t, decision.Outcome{Decision: decision.Review, FinalScore: 62}, resp.DecisionTrace.Initial)
	require.NotNil(t, resp.DecisionTrace.PostRewrite)
	assert.Equal(t, decision.Outcome{Decision: decision.Apply, FinalScore: 86}, *resp.DecisionTrace.PostRewrite)

	assert.Equal(t, []string{"node"}, resp.MissingSkills)
	assert.Equal(t, []string{"Node.js"}, f.rewriter.missing)
	assert.Equal(t, f.rewriter.bullets, resp.ImprovedResume)

	require.NotNil(t, resp.CoverLetter)
	assert.Equal(t, "Dear hiring team", *resp.CoverLetter)
	assert.Equal(t, ai.ModelInfo{Provider: "stub", Model: "fallback-model", FallbackUsed: true}, resp.ModelInfo)
	assert.Equal(t, 1, f.letters.calls)

	assert.Equal(t, []skills.SkillConfidence{
		{Skill: "nextjs", Confidence: 1, Source: skills.SourceExplicit},
		{Skill: "typescript", Confidence: 1, Source: skills.SourceExplicit},
		{Skill: "javascript", Confidence: 1, Source: skills.SourceInferred},
		{Skill: "react", Confidence: 1, Source: skills.SourceInferred},
	}, resp.DebugSkillGraph)

	assert.Equal(t, "Skills and experience:\nNext.js, TypeScript", f.sim.a)
	assert.Equal(t, "Required skills:\nReact, Node.js", f.sim.b)

	finished := f.logs.FilterMessage("evaluation finished").All()
	require.Len(t, finished, 1)
	ctx := finished[0].ContextMap()
	assert.Equal(t, "req-1", ctx["request_id"])
	assert.Equal(t, "APPLY", ctx["decision"])
}

func TestEvaluate_ReviewStaysWhenRewriteMentionsNothing(t *testing.T) {
	f := newFixture(t, 0.8)
	f.rewriter.bullets = []string{"Helped improve rendering performance"}

	resp, err := f.agent.Evaluate(context.Background(), reviewRequest())
	require.NoError(t, err)

	assert.Equal(t, decision.Review, resp.Decision)
	assert.Equal(t, 62, resp.Scores.Final)
	require.NotNil(t, resp.Scores.ImprovedDeterministic)
	assert.Equal(t, 0, *resp.Scores.ImprovedDeterministic)
	require.NotNil(t, resp.DecisionTrace.PostRewrite)
	assert.Equal(t, decision.Outcome{Decision: decision.Review, FinalScore: 32}, *resp.DecisionTrace.PostRewrite)
	assert.Nil(t, resp.CoverLetter)
	assert.Zero(t, f.letters.calls)
	assert.Equal(t, ai.ModelInfo{Provider: "stub", Model: "preferred-model"}, resp.ModelInfo)
	assert.Equal(t, "Consider improving your resume by highlighting: Node.js.", resp.ActionHint)
}

func TestEvaluate_EmptyRewriteKeepsReview(t *testing.T) {
	for name, rewriter := range map[string]*stubRewriter{
		"empty":  {bullets: []string{}},
		"failed": {err: errors.New("model unavailable")},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, 0.8)
			f.rewriter.bullets, f.rewriter.err = rewriter.bullets, rewriter.err

			resp, err := f.agent.Evaluate(context.Background(), reviewRequest())
			require.NoError(t, err)

			assert.Equal(t, decision.Review, resp.Decision)
			assert.Equal(t, 62, resp.Scores.Final)
			assert.Nil(t, resp.Scores.ImprovedDeterministic)
			assert.Nil(t, resp.DecisionTrace.PostRewrite)
			require.NotNil(t, resp.ImprovedResume)
			assert.Empty(t, resp.ImprovedResume)
			assert.Zero(t, f.letters.calls)
		})
	}
}

func TestEvaluate_ApplyGeneratesCoverLetter(t *testing.T) {
	f := newFixture(t, 0.5)

	resp, err := f.agent.Evaluate(context.Background(), &Request{
		ResumeSkills:   []string{"React", "Node.js"},
		RequiredSkills: []string{"react", "nodejs"},
	})
	require.NoError(t, err)

	assert.Equal(t, decision.Apply, resp.Decision)
	assert.Equal(t, 100, resp.Scores.Deterministic)
	assert.Equal(t, 80, resp.Scores.Final)
	assert.Nil(t, resp.DecisionTrace.PostRewrite)
	assert.Nil(t, resp.ImprovedResume)
	assert.Zero(t, f.rewriter.calls)
	assert.Empty(t, resp.MissingSkills)
	assert.Equal(t, []scoring.MatchResult{
		{RequiredSkill: "react", MatchedSkill: "react", MatchType: scoring.MatchExact, Weight: 1},
		{RequiredSkill: "node", MatchedSkill: "node", MatchType: scoring.MatchExact, Weight: 1},
	}, resp.SkillMatches)
	require.NotNil(t, resp.CoverLetter)
}

func TestEvaluate_CoverLetterFailureAbortsRequest(t *testing.T) {
	f := newFixture(t, 0.5)
	f.letters.err = errors.New("quota exhausted")

	_, err := f.agent.Evaluate(context.Background(), &Request{
		ResumeSkills:   []string{"React"},
		RequiredSkills: []string{"React"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollaborator)
}

func TestEvaluate_SemanticFailureAbortsRequest(t *testing.T) {
	f := newFixture(t, 0)
	f.sim.err = errors.New("embedding failed")

	_, err := f.agent.Evaluate(context.Background(), reviewRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollaborator)
	assert.Zero(t, f.rewriter.calls)
	assert.Zero(t, f.letters.calls)
}

func TestEvaluate_DomainGateForcesSkip(t *testing.T) {
	f := newFixture(t, 1)

	resp, err := f.agent.Evaluate(context.Background(), &Request{
		ResumeSkills:     []string{"Cooking", "Gardening"},
		ResumeExperience: []string{"Designed seasonal menus in 2023"},
		RequiredSkills:   []string{"React", "Cooking"},
	})
	require.NoError(t, err)

	assert.Equal(t, decision.Skip, resp.Decision)
	assert.Equal(t, Scores{}, resp.Scores)
	assert.Equal(t, decision.Trace{Initial: decision.Outcome{Decision: decision.Skip}}, resp.DecisionTrace)
	assert.Equal(t, []string{"React", "Cooking"}, resp.MissingSkills)
	assert.NotNil(t, resp.SkillMatches)
	assert.Empty(t, resp.SkillMatches)
	assert.Nil(t, resp.DebugSkillGraph)
	assert.Zero(t, f.sim.calls)
	assert.Zero(t, f.rewriter.calls)
	assert.Zero(t, f.letters.calls)
	assert.Equal(t, 1, f.logs.FilterMessage("resume rejected by domain gate").Len())
}

func TestEvaluate_EmptyRequiredSkillsScoreZero(t *testing.T) {
	f := newFixture(t, 0.9)

	resp, err := f.agent.Evaluate(context.Background(), &Request{
		ResumeSkills:   []string{"React"},
		RequiredSkills: []string{},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Scores.Deterministic)
	assert.Equal(t, 36, resp.Scores.Final)
	assert.Equal(t, decision.Skip, resp.Decision)
}

func TestEvaluate_InvalidRequest(t *testing.T) {
	f := newFixture(t, 0.8)

	tests := map[string]*Request{
		"nil":              nil,
		"no resume skills": {RequiredSkills: []string{"React"}},
		"no requirements":  {ResumeSkills: []string{"React"}},
		"other provider":   {ResumeSkills: []string{"React"}, RequiredSkills: []string{"React"}, Model: "ollama:qwen2.5:7b-instruct"},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.agent.Evaluate(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	assert.Zero(t, f.sim.calls)
}

func TestEvaluate_BlankSkillEntriesAreDropped(t *testing.T) {
	f := newFixture(t, 0.5)

	resp, err := f.agent.Evaluate(context.Background(), &Request{
		ResumeSkills:   []string{"React", "  ", "Cobol"},
		RequiredSkills: []string{"React", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, decision.Apply, resp.Decision)
	assert.Equal(t, 100, resp.Scores.Deterministic)
	assert.Empty(t, resp.MissingSkills)
	assert.Equal(t, "Skills and experience:\nReact, Cobol", f.sim.a)
	assert.Equal(t, "Required skills:\nReact", f.sim.b)
	assert.Equal(t, []string{"React", "Cobol"}, f.letters.skills)
	assert.Equal(t, []string{"React"}, f.letters.required)
}

func TestEvaluate_GateIgnoresBlankRequirements(t *testing.T) {
	f := newFixture(t, 1)

	resp, err := f.agent.Evaluate(context.Background(), &Request{
		ResumeSkills:   []string{"Cooking", " "},
		RequiredSkills: []string{"", "React"},
	})
	require.NoError(t, err)

	assert.Equal(t, decision.Skip, resp.Decision)
	assert.Equal(t, []string{"React"}, resp.MissingSkills)
}

func TestEvaluate_RequestedModel(t *testing.T) {
	t.Run("reported without a cover letter", func(t *testing.T) {
		f := newFixture(t, 0.8)

		req := reviewRequest()
		req.Model = "stub:custom-model"

		resp, err := f.agent.Evaluate(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, decision.Review, resp.Decision)
		assert.Equal(t, ai.ModelInfo{Provider: "stub", Model: "custom-model"}, resp.ModelInfo)
	})

	t.Run("passed to the cover letter writer", func(t *testing.T) {
		f := newFixture(t, 0.5)

		_, err := f.agent.Evaluate(context.Background(), &Request{
			ResumeSkills:   []string{"React"},
			RequiredSkills: []string{"React"},
			Model:          "custom-model",
		})
		require.NoError(t, err)

		assert.Equal(t, "custom-model", f.letters.model)
	})

	t.Run("configured model when absent", func(t *testing.T) {
		f := newFixture(t, 0.5)

		_, err := f.agent.Evaluate(context.Background(), &Request{
			ResumeSkills:   []string{"React"},
			RequiredSkills: []string{"React"},
		})
		require.NoError(t, err)

		assert.Empty(t, f.letters.model)
	})
}

func TestNew_RejectsBadConfiguration(t *testing.T) {
	g, err := skillgraph.Default()
	require.NoError(t, err)
	pipeline := skills.NewPipeline(g, nil)

	collab := Collaborators{Similarity: &stubSimilarity{}, Rewriter: &stubRewriter{}, CoverLetters: &stubLetters{}}

	_, err = New(nil, collab, DefaultConfig(), nil)
	assert.Error(t, err)

	_, err = New(pipeline, Collaborators{}, DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Thresholds.Apply = 150
	_, err = New(pipeline, collab, cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.RewriteConfidence = 1.5
	_, err = New(pipeline, collab, cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.RewriteConfidence = 0
	a, err := New(pipeline, collab, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, a.rewriteConfidence)
}

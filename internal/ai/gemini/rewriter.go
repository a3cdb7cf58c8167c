package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/logger"
)

//go:embed rewrite_prompt.md
var rewritePrompt string

//go:embed cover_letter_prompt.md
var coverLetterPrompt string

type textGenerator interface {
	Generate(ctx context.Context, system, message string) (*ai.Generation, error)
}

// Rewriter rewords experience bullets through Gemini and filters the result for safety.
type Rewriter struct {
	generator textGenerator
	forbidden []string
	logger    *zap.Logger
}

// NewRewriter builds a Rewriter. A nil forbidden list uses ai.DefaultForbiddenWords.
func NewRewriter(generator textGenerator, forbidden []string, log *zap.Logger) *Rewriter {
	return &Rewriter{generator: generator, forbidden: forbidden, logger: logger.OrNop(log)}
}

// RewriteBullets returns the safe rewritten bullets. Without input bullets nothing is generated.
func (r *Rewriter) RewriteBullets(ctx context.Context, bullets, missingSkills []string) ([]string, error) {
	if len(bullets) == 0 {
		return []string{}, nil
	}

	gen, err := r.generator.Generate(ctx, rewritePrompt, buildRewriteMessage(bullets, missingSkills))
	if err != nil {
		return nil, fmt.Errorf("rewrite bullets: %w", err)
	}

	var items []any
	if err := json.Unmarshal([]byte(extractJSON(gen.Text)), &items); err != nil {
		return nil, fmt.Errorf("parse rewrite response: %w", err)
	}

	safe := ai.SafeBullets(items, r.forbidden)
	r.logger.Debug("rewrite filtered",
		zap.Int("generated", len(items)),
		zap.Int("kept", len(safe)),
		zap.String(logger.FieldModel, gen.Model.Model),
	)

	return safe, nil
}

func buildRewriteMessage(bullets, missingSkills []string) string {
	var b strings.Builder
	b.WriteString("Original resume bullets:\n")
	for _, bullet := range bullets {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(bullet))
		b.WriteString("\n")
	}
	b.WriteString("\nTarget skills to gently reflect (only if safe):\n")
	b.WriteString(strings.Join(missingSkills, ", "))
	return b.String()
}

// CoverLetterWriter generates cover letters through Gemini.
type CoverLetterWriter struct {
	generator textGenerator
}

// NewCoverLetterWriter builds a CoverLetterWriter.
func NewCoverLetterWriter(generator textGenerator) *CoverLetterWriter {
	return &CoverLetterWriter{generator: generator}
}

// CoverLetter generates a letter from the candidate skills and the job requirements.
func (w *CoverLetterWriter) CoverLetter(ctx context.Context, skills, requiredSkills []string) (*ai.Generation, error) {
	message := fmt.Sprintf("Skills:\n%s\n\nJob requirements:\n%s",
		strings.Join(skills, ", "), strings.Join(requiredSkills, ", "))

	gen, err := w.generator.Generate(ctx, coverLetterPrompt, message)
	if err != nil {
		return nil, fmt.Errorf("generate cover letter: %w", err)
	}

	return gen, nil
}

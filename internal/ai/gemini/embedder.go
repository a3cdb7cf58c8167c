package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/logger"
)

type embedClient interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder computes semantic similarity from Gemini text embeddings.
type Embedder struct {
	models embedClient
	model  string
	logger *zap.Logger
}

// NewEmbedder builds an Embedder on top of the client.
func NewEmbedder(client *genai.Client, cfg Config, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(cfg.EmbeddingModel)
	if model == "" {
		model = defaultEmbeddingModel
	}

	return &Embedder{
		models: client.Models,
		model:  model,
		logger: logger.WithCommonFields(log, Provider, model),
	}
}

// Similarity embeds both texts in one request and returns their cosine similarity clamped to [0, 1].
func (e *Embedder) Similarity(ctx context.Context, a, b string) (float64, error) {
	vectors, err := e.Embed(ctx, a, b)
	if err != nil {
		return 0, err
	}

	sim := ai.CosineSimilarity(vectors[0], vectors[1])
	logger.OrNop(e.logger).Debug("semantic similarity", zap.Float64("similarity", sim))

	return max(0, min(1, sim)), nil
}

// Embed returns one embedding per text, in order.
func (e *Embedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}
	if len(texts) == 0 {
		return nil, errors.New("nothing to embed")
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, errors.New("text to embed must not be empty")
		}
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", embeddingCount(resp), len(texts))
	}

	vectors := make([][]float32, 0, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini api returned empty embedding %d", i)
		}
		vectors = append(vectors, emb.Values)
	}

	return vectors, nil
}

func embeddingCount(resp *genai.EmbedContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/logger"
	"github.com/spigell/fit-agent/internal/utils"
)

const (
	// Provider is reported in the model info of every generation.
	Provider = "gemini"

	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultMaxRetries     = 3
	defaultMaxLogLength   = 200
)

// Config configures the Gemini collaborators.
type Config struct {
	APIKeyFile     string   `mapstructure:"api-key-file"`
	APIKey         string   `mapstructure:"api-key"`
	Model          string   `mapstructure:"model"`
	FallbackModels []string `mapstructure:"fallback-models"`
	EmbeddingModel string   `mapstructure:"embedding-model"`
	MaxRetries     int      `mapstructure:"max-retries"`
	MaxLogLength   int      `mapstructure:"max-log-length"`
}

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// NewClient creates a Google GenAI client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return client, nil
}

// Generator sends a system instruction and one user message to Gemini. Transient API errors are
// retried per model; when a model keeps failing the configured fallback models are tried in order.
type Generator struct {
	chats          chatCreator
	model          string
	fallbackModels []string
	maxRetries     int
	maxLogLen      int
	logger         *zap.Logger
}

// NewGenerator builds a Generator on top of the client.
func NewGenerator(client *genai.Client, cfg Config, log *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		chats:          genaiChats{chats: client.Chats},
		model:          model,
		fallbackModels: cfg.FallbackModels,
		maxRetries:     retries,
		maxLogLen:      maxLogLen,
		logger:         logger.WithCommonFields(log, Provider, model),
	}
}

// Model returns the preferred model.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// ModelInfo describes the preferred model before any fallback happened.
func (g *Generator) ModelInfo() ai.ModelInfo {
	return ai.ModelInfo{Provider: Provider, Model: g.Model()}
}

// Generate tries the model requested through ai.WithPreferredModel, then the configured model and
// each fallback model until one produces text. FallbackUsed is set when the first candidate failed.
func (g *Generator) Generate(ctx context.Context, system, message string) (*ai.Generation, error) {
	if g == nil || g.chats == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("message must not be empty")
	}

	log := logger.OrNop(g.logger)
	log.Debug("gemini generate content request",
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, g.maxLogLen)),
	)

	var errs []error
	for i, model := range g.candidates(ai.PreferredModel(ctx)) {
		text, err := g.generateWithRetry(ctx, model, system, message)
		if err == nil {
			log.Debug("gemini generate content response",
				zap.String(logger.FieldModel, model),
				zap.Bool("fallback_used", i > 0),
				zap.Int("response_length", utf8.RuneCountInString(text)),
				zap.String("response_preview", utils.TruncateForLog(text, g.maxLogLen)),
			)
			return &ai.Generation{
				Text:  text,
				Model: ai.ModelInfo{Provider: Provider, Model: model, FallbackUsed: i > 0},
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		log.Warn("gemini model failed", zap.String(logger.FieldModel, model), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
	}

	return nil, fmt.Errorf("all gemini models failed: %w", errors.Join(errs...))
}

func (g *Generator) candidates(requested string) []string {
	models := make([]string, 0, len(g.fallbackModels)+2)
	seen := make(map[string]bool)
	for _, m := range append([]string{requested, g.model}, g.fallbackModels...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models
}

func (g *Generator) generateWithRetry(ctx context.Context, model, system, message string) (string, error) {
	var config *genai.GenerateContentConfig
	if system = strings.TrimSpace(system); system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		}
	}

	attempts := max(g.maxRetries, 1)
	for attempt := 1; ; attempt++ {
		chat, err := g.chats.Create(ctx, model, config, nil)
		if err != nil {
			return "", fmt.Errorf("create chat: %w", err)
		}

		resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
		if err == nil {
			return responseText(resp)
		}

		delay, retryable := retryDelay(err, attempt)
		if !retryable || attempt >= attempts {
			return "", fmt.Errorf("generate content: %w", err)
		}

		logger.OrNop(g.logger).Warn("retrying gemini request",
			zap.String(logger.FieldModel, model),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

package ai

import (
	"context"
	"strings"
)

type preferredModelKey struct{}

// WithPreferredModel returns a context asking generators to try model before their configured
// models. A blank model leaves ctx unchanged.
func WithPreferredModel(ctx context.Context, model string) context.Context {
	if model = strings.TrimSpace(model); model == "" {
		return ctx
	}
	return context.WithValue(ctx, preferredModelKey{}, model)
}

// PreferredModel returns the model requested through WithPreferredModel, if any.
func PreferredModel(ctx context.Context) string {
	model, _ := ctx.Value(preferredModelKey{}).(string)
	return model
}

// ParseModel splits a "provider:model" selector. Only the first colon separates the provider, so
// model names that contain colons stay intact. A selector without a colon has no provider.
func ParseModel(selector string) (provider, model string) {
	selector = strings.TrimSpace(selector)
	provider, model, found := strings.Cut(selector, ":")
	if !found {
		return "", selector
	}
	return strings.TrimSpace(provider), strings.TrimSpace(model)
}

package ai

import "strings"

// DefaultForbiddenWords lists terms a rewritten bullet must never introduce.
var DefaultForbiddenWords = []string{
	"java",
	"spring",
	"microservice",
	"backend",
	"node",
	"api",
	"database",
	"company",
	"corporation",
}

// SafeBullets keeps the string items that mention none of the forbidden words. Blank strings and
// non-string items are dropped. A nil forbidden list falls back to DefaultForbiddenWords.
func SafeBullets(items []any, forbidden []string) []string {
	if forbidden == nil {
		forbidden = DefaultForbiddenWords
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		bullet, ok := item.(string)
		if !ok {
			continue
		}

		bullet = strings.TrimSpace(bullet)
		if bullet == "" || containsAny(strings.ToLower(bullet), forbidden) {
			continue
		}

		out = append(out, bullet)
	}

	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

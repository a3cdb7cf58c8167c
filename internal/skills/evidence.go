package skills

import (
	"maps"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	literalBoost    = 0.2
	actionBoost     = 0.1
	peripheralCut   = 0.1
	peripheralFloor = 0.3
)

var (
	actionVerbs     = []string{"built", "designed", "optimized"}
	peripheralWords = []string{"assisted", "exposed"}

	yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// AdjustByEvidence nudges inferred confidences using the experience bullets. For every bullet and
// skill: the skill id appearing literally adds 0.2, an action verb adds 0.1 and peripheral
// wording removes 0.1 without going below 0.3. Each check is clamped as it is applied.
func AdjustByEvidence(inferred map[string]float64, bullets []string) map[string]float64 {
	updated := maps.Clone(inferred)
	if updated == nil {
		updated = make(map[string]float64)
	}

	for _, bullet := range bullets {
		text := strings.ToLower(bullet)
		active := containsAny(text, actionVerbs)
		peripheral := containsAny(text, peripheralWords)

		for skill, confidence := range updated {
			if strings.Contains(text, strings.ToLower(skill)) {
				confidence = min(round2(confidence+literalBoost), 1)
			}
			if active {
				confidence = min(round2(confidence+actionBoost), 1)
			}
			if peripheral {
				confidence = max(round2(confidence-peripheralCut), peripheralFloor)
			}
			updated[skill] = clamp(confidence)
		}
	}

	return updated
}

// ApplyRecencyDecay discounts every inferred confidence by one multiplier derived from the most
// recent year mentioned in any bullet. Without any year the input is returned unchanged.
func ApplyRecencyDecay(inferred map[string]float64, bullets []string, now time.Time) map[string]float64 {
	year, ok := MostRecentYear(bullets)
	if !ok {
		return maps.Clone(inferred)
	}

	multiplier := RecencyMultiplier(now.Year() - year)

	adjusted := make(map[string]float64, len(inferred))
	for skill, confidence := range inferred {
		adjusted[skill] = clamp(round2(confidence * multiplier))
	}
	return adjusted
}

// MostRecentYear returns the largest four-digit year (1900-2099) found in the bullets.
func MostRecentYear(bullets []string) (int, bool) {
	latest, found := 0, false
	for _, bullet := range bullets {
		for _, match := range yearPattern.FindAllString(bullet, -1) {
			year, err := strconv.Atoi(match)
			if err != nil {
				continue
			}
			if !found || year > latest {
				latest, found = year, true
			}
		}
	}
	return latest, found
}

// RecencyMultiplier maps experience age in years to a confidence multiplier.
func RecencyMultiplier(age int) float64 {
	switch {
	case age <= 2:
		return 1.0
	case age <= 5:
		return 0.85
	case age <= 8:
		return 0.7
	default:
		return 0.5
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

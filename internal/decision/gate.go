package decision

import "strings"

// TechKeywords is the keyword list of the domain gate.
var TechKeywords = []string{
	"react", "javascript", "typescript", "frontend",
	"backend", "java", "spring", "node",
	"api", "microservice", "system",
}

// IsTechDomain reports whether any raw skill contains one of the technical keywords.
func IsTechDomain(rawSkills []string) bool {
	for _, skill := range rawSkills {
		s := strings.ToLower(skill)
		for _, k := range TechKeywords {
			if strings.Contains(s, k) {
				return true
			}
		}
	}
	return false
}

// InferFromRewrite returns the required skills mentioned in the rewritten bullets, compared
// case-insensitively by substring. Each skill is returned once, in the order of first mention.
func InferFromRewrite(bullets, required []string) []string {
	found := make([]string, 0)
	seen := make(map[string]bool)

	for _, bullet := range bullets {
		text := strings.ToLower(bullet)
		for _, skill := range required {
			needle := strings.ToLower(strings.TrimSpace(skill))
			if needle == "" || seen[skill] || !strings.Contains(text, needle) {
				continue
			}
			seen[skill] = true
			found = append(found, skill)
		}
	}

	return found
}

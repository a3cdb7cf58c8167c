package decision

import (
	"fmt"
	"strings"
)

// Explanation is the human-readable part of a decision.
type Explanation struct {
	Reason     string `json:"decisionReason"`
	ActionHint string `json:"actionHint"`
}

// Explain describes the decision. Missing skills are mentioned when they change the advice.
func Explain(d Decision, missingSkills []string) Explanation {
	switch d {
	case Apply:
		hint := "You can apply confidently. Your profile aligns well with the role."
		if len(missingSkills) > 0 {
			hint = fmt.Sprintf("You can apply confidently. Be ready to discuss: %s.", strings.Join(missingSkills, ", "))
		}
		return Explanation{
			Reason:     "Strong alignment with the role, backed by sufficient explicit and inferred skills.",
			ActionHint: hint,
		}
	case Review:
		return Explanation{
			Reason:     "Good role fit, but resume wording does not fully reflect all required skills.",
			ActionHint: fmt.Sprintf("Consider improving your resume by highlighting: %s.", strings.Join(missingSkills, ", ")),
		}
	default:
		return Explanation{
			Reason:     "Resume does not align with the core requirements of this role.",
			ActionHint: "Consider applying to roles that better match your current experience.",
		}
	}
}

// Package ai declares the external collaborators an evaluation depends on: semantic similarity,
// resume bullet rewriting and cover letter generation. It also declares the parsers that turn free
// text resumes and job descriptions into structured input.
package ai

import "context"

// ModelInfo describes which model produced generated content.
type ModelInfo struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	FallbackUsed bool   `json:"fallbackUsed"`
}

// Generation is generated text together with the model that produced it.
type Generation struct {
	Text  string
	Model ModelInfo
}

// Similarity scores how close two texts are, in [0, 1].
type Similarity interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Rewriter rewords experience bullets so they reflect the missing skills they already imply. An
// empty result means no safe rewrite is available.
type Rewriter interface {
	RewriteBullets(ctx context.Context, bullets, missingSkills []string) ([]string, error)
}

// CoverLetterWriter generates a cover letter for the candidate skills and the job requirements.
type CoverLetterWriter interface {
	CoverLetter(ctx context.Context, skills, requiredSkills []string) (*Generation, error)
}

// ParsedResume is the structured form of a free text resume.
type ParsedResume struct {
	Summary    string   `json:"summary"`
	Skills     []string `json:"skills"`
	Experience []string `json:"experience"`
}

// ParsedJob is the structured form of a free text job description.
type ParsedJob struct {
	RequiredSkills  []string `json:"requiredSkills"`
	PreferredSkills []string `json:"preferredSkills"`
	Seniority       string   `json:"seniority"`
	Keywords        []string `json:"keywords"`
}

// ResumeParser extracts the summary, skills and experience bullets from resume text.
type ResumeParser interface {
	ParseResume(ctx context.Context, text string) (*ParsedResume, error)
}

// JobParser extracts skills, seniority and keywords from a job description.
type JobParser interface {
	ParseJob(ctx context.Context, text string) (*ParsedJob, error)
}

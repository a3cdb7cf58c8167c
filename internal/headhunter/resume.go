package headhunter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

type Resumes struct {
	Items []*Resume
}

type Resume struct {
	Title string
	ID    string `json:"id,omitempty"`
}

// ResumeDetails is the part of a full hh.ru resume an evaluation needs.
type ResumeDetails struct {
	ID         string       `mapstructure:"id"`
	Title      string       `mapstructure:"title"`
	SkillSet   []string     `mapstructure:"skill_set"`
	Experience []Experience `mapstructure:"experience"`
}

// Experience is one job of a resume. Dates use the API's YYYY-MM-DD format; End is empty for
// the current job.
type Experience struct {
	Company     string `mapstructure:"company"`
	Position    string `mapstructure:"position"`
	Start       string `mapstructure:"start"`
	End         string `mapstructure:"end"`
	Description string `mapstructure:"description"`
}

func (c *Client) getResumes(ctx context.Context, id string) (*Resumes, error) {
	apiURLMineResumes := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	items, err := c.GetItems(ctx, apiURLMineResumes, nil)
	if err != nil {
		return nil, err
	}

	var resumes []*Resume
	if err = mapstructure.Decode(items, &resumes); err != nil {
		return nil, err
	}

	return &Resumes{
		Items: resumes,
	}, nil
}

func (r *Resumes) Len() int {
	return len(r.Items)
}

func (r *Resumes) Titles() []string {
	titles := make([]string, 0, len(r.Items))

	for _, v := range r.Items {
		titles = append(titles, v.Title)
	}

	return titles
}

func (r *Resumes) FindByTitle(title string) *Resume {
	for _, resume := range r.Items {
		if resume.Title == title {
			return resume
		}
	}

	return nil
}

func (c *Client) GetResumeDetails(ctx context.Context, id string) (*ResumeDetails, error) {
	if id == "" {
		return nil, fmt.Errorf("resume id is required")
	}

	apiURL := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	var raw map[string]any
	if err := c.getJSON(ctx, apiURL, nil, &raw); err != nil {
		return nil, err
	}

	var details ResumeDetails
	if err := mapstructure.Decode(raw, &details); err != nil {
		return nil, fmt.Errorf("decode resume %s: %w", id, err)
	}

	return &details, nil
}

// Bullets renders every job as one experience bullet. Each bullet carries the years the job
// spans, with the current year for an ongoing job, so recency can be derived from them.
func (d *ResumeDetails) Bullets(now time.Time) []string {
	bullets := make([]string, 0, len(d.Experience))

	for _, exp := range d.Experience {
		var b strings.Builder

		b.WriteString(strings.TrimSpace(exp.Position))
		if company := strings.TrimSpace(exp.Company); company != "" {
			b.WriteString(" at ")
			b.WriteString(company)
		}

		start := yearOf(exp.Start)
		end := yearOf(exp.End)
		if end == "" {
			end = fmt.Sprint(now.Year())
		}
		if start != "" {
			fmt.Fprintf(&b, ", %s-%s", start, end)
		}

		if desc := strings.Join(strings.Fields(exp.Description), " "); desc != "" {
			b.WriteString(". ")
			b.WriteString(desc)
		}

		if bullet := strings.TrimSpace(b.String()); bullet != "" {
			bullets = append(bullets, bullet)
		}
	}

	return bullets
}

func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

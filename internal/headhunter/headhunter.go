// Package headhunter is a small hh.ru API client. It loads the candidate's resumes and a vacancy to
// build evaluation requests, and posts a negotiation when the candidate applies.
package headhunter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/logger"
)

const (
	apiURL           = "https://api.hh.ru"
	mineResumeID     = "mine"
	defaultUserAgent = "spigell/fit-agent (spigelly@gmail.com)"
	// Max value for search per page.
	perPage = "100"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a client. An empty user agent falls back to the default one.
func New(log *zap.Logger, token, userAgent string) *Client {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger.OrNop(log),
		UserAgent: userAgent,
	}
}

func (c *Client) GetMineResumes(ctx context.Context) (*Resumes, error) {
	return c.getResumes(ctx, mineResumeID)
}

// Apply sends the message as a response to the vacancy from the given resume. Vacancies the
// candidate already applied to are skipped and reported with ErrAlreadyApplied.
func (c *Client) Apply(ctx context.Context, resumeID, vacancyID, message string) error {
	negotiations, err := c.GetNegotiations(ctx)
	if err != nil {
		return err
	}

	for _, id := range negotiations.VacanciesIDs() {
		if id == vacancyID {
			return ErrAlreadyApplied
		}
	}

	return c.postNegotiation(ctx, resumeID, vacancyID, message)
}

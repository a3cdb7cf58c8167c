package headhunter

import (
	"errors"
	"fmt"
)

// ErrAlreadyApplied is returned when the candidate already has a negotiation for the vacancy.
var ErrAlreadyApplied = errors.New("already applied to this vacancy")

// StatusError is an unexpected HTTP status from the API.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

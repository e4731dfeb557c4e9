// Package ranking defines the contract with an external semantic ranking
// service. A collaborator receives the best programmatic candidates and may
// return a reordering of a subset of them with scores and speech text. Its
// answer is advisory: Validate rejects anything that does not refer strictly
// to the submitted candidates.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"

	"github.com/vanityserve/vanityserve/internal/utils"
)

// Sentinel failures. Every collaborator error should wrap one of them so the
// caller can report why it fell back.
var (
	ErrTimeout     = errors.New("ranking timed out")
	ErrTransport   = errors.New("ranking transport failure")
	ErrMalformed   = errors.New("ranking response malformed")
	ErrOutOfSet    = errors.New("ranking response references unknown candidate")
	ErrRateLimited = errors.New("ranking rate limited")
)

// CandidateForm is one candidate as submitted to the collaborator.
type CandidateForm struct {
	ID            string  `json:"id" msgpack:"id"`
	DisplayForm   string  `json:"displayForm" msgpack:"displayForm"`
	CoverageScore float64 `json:"coverageScore" msgpack:"coverageScore"`
}

// Request carries the top programmatic candidates for one number.
type Request struct {
	OriginalDigits string          `json:"originalDigits" msgpack:"originalDigits"`
	Candidates     []CandidateForm `json:"candidates" msgpack:"candidates"`
	MaxResults     int             `json:"maxResults" msgpack:"maxResults"`
}

// Result is the collaborator's opinion on one candidate. Rank starts at 1.
type Result struct {
	ID         string  `json:"id" msgpack:"id"`
	Rank       int     `json:"rank" msgpack:"rank"`
	Score      float64 `json:"score" msgpack:"score"`
	SpeechText string  `json:"speechText,omitempty" msgpack:"speechText,omitempty"`
}

// Response lists the candidates the collaborator chose, in any order.
type Response struct {
	Results []Result `json:"results" msgpack:"results"`
}

// Collaborator ranks candidates. Implementations must honour ctx cancellation.
type Collaborator interface {
	Rank(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Collaborator.
type Func func(ctx context.Context, req Request) (Response, error)

// Rank calls f.
func (f Func) Rank(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }

// CollaboratorError records which collaborator failed.
type CollaboratorError struct {
	Name string
	Err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("ranking collaborator %s: %v", e.Name, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Validate checks resp against req: at least one result, every id submitted
// and mentioned once, ranks positive and scores finite.
func Validate(req Request, resp Response) error {
	if len(resp.Results) == 0 {
		return fmt.Errorf("%w: no results", ErrMalformed)
	}
	if len(resp.Results) > len(req.Candidates) {
		return fmt.Errorf("%w: %d results for %d candidates", ErrMalformed, len(resp.Results), len(req.Candidates))
	}

	submitted := make(map[string]struct{}, len(req.Candidates))
	for _, c := range req.Candidates {
		submitted[c.ID] = struct{}{}
	}
	seen := utils.NewSeenFilter()
	for _, r := range resp.Results {
		if _, ok := submitted[r.ID]; !ok {
			return fmt.Errorf("%w: %q", ErrOutOfSet, r.ID)
		}
		if !seen.ShouldInclude(r.ID) {
			return fmt.Errorf("%w: duplicate id %q", ErrMalformed, r.ID)
		}
		if r.Rank < 1 {
			return fmt.Errorf("%w: rank %d for %q", ErrMalformed, r.Rank, r.ID)
		}
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			return fmt.Errorf("%w: score for %q is not finite", ErrMalformed, r.ID)
		}
	}
	return nil
}

// Reason is a short machine-readable fallback cause.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTimeout     Reason = "timeout"
	ReasonCanceled    Reason = "canceled"
	ReasonRateLimited Reason = "rate_limited"
	ReasonTransport   Reason = "transport"
	ReasonMalformed   Reason = "malformed"
	ReasonOutOfSet    Reason = "out_of_set"
	ReasonUnknown     Reason = "unknown"
)

// Classify maps a collaborator error to a Reason using sentinels and
// standard error types only.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, ErrOutOfSet):
		return ReasonOutOfSet
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed
	case errors.Is(err, ErrTransport):
		return ReasonTransport
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return ReasonTimeout
		}
		return ReasonTransport
	}
	return ReasonUnknown
}

// Package mock provides deterministic ranking collaborators for tests and
// offline runs.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vanityserve/vanityserve/pkg/ranking"
)

// Reverse ranks the submitted candidates in reverse order and echoes the
// display form, lowercased, as speech text.
type Reverse struct{}

// Rank implements ranking.Collaborator.
func (Reverse) Rank(ctx context.Context, req ranking.Request) (ranking.Response, error) {
	if err := ctx.Err(); err != nil {
		return ranking.Response{}, err
	}
	n := len(req.Candidates)
	resp := ranking.Response{Results: make([]ranking.Result, 0, n)}
	for i := n - 1; i >= 0; i-- {
		c := req.Candidates[i]
		resp.Results = append(resp.Results, ranking.Result{
			ID:         c.ID,
			Rank:       n - i,
			Score:      float64(i + 1),
			SpeechText: strings.ToLower(c.DisplayForm),
		})
	}
	return resp, nil
}

// Slow blocks for Delay or until ctx ends, then delegates to Next (or
// Reverse when Next is nil).
type Slow struct {
	Delay time.Duration
	Next  ranking.Collaborator
}

// Rank implements ranking.Collaborator.
func (s Slow) Rank(ctx context.Context, req ranking.Request) (ranking.Response, error) {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ranking.Response{}, fmt.Errorf("%w: %w", ranking.ErrTimeout, ctx.Err())
	case <-timer.C:
	}
	next := s.Next
	if next == nil {
		next = Reverse{}
	}
	return next.Rank(ctx, req)
}

// Fixed always returns the same response or error.
type Fixed struct {
	Response ranking.Response
	Err      error
}

// Rank implements ranking.Collaborator.
func (f Fixed) Rank(context.Context, ranking.Request) (ranking.Response, error) {
	return f.Response, f.Err
}

// Counting records how often it was called and the largest request size.
type Counting struct {
	Next     ranking.Collaborator
	calls    atomic.Int64
	maxBatch atomic.Int64
}

// Rank implements ranking.Collaborator.
func (c *Counting) Rank(ctx context.Context, req ranking.Request) (ranking.Response, error) {
	c.calls.Add(1)
	n := int64(len(req.Candidates))
	for {
		cur := c.maxBatch.Load()
		if n <= cur || c.maxBatch.CompareAndSwap(cur, n) {
			break
		}
	}
	next := c.Next
	if next == nil {
		next = Reverse{}
	}
	return next.Rank(ctx, req)
}

// Calls returns the number of Rank calls so far.
func (c *Counting) Calls() int { return int(c.calls.Load()) }

// MaxBatch returns the most candidates seen in one request.
func (c *Counting) MaxBatch() int { return int(c.maxBatch.Load()) }

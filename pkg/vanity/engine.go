// Package vanity turns phone numbers into ranked vanity renderings.
//
// A lookup runs four stages: FindSpans discovers dictionary words spellable
// over digit ranges, ComposeCandidates combines them into full-length
// candidates, a Ranker scores them and may consult a ranking collaborator,
// and Format renders the winners for display and speech. Only the
// collaborator call blocks; everything else is a pure function of the
// number, the keypad mapping and the dictionary index.
package vanity

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/vanityserve/vanityserve/internal/logger"
	"github.com/vanityserve/vanityserve/internal/utils"
	"github.com/vanityserve/vanityserve/pkg/dictionary"
	"github.com/vanityserve/vanityserve/pkg/keypad"
	"github.com/vanityserve/vanityserve/pkg/phone"
	"github.com/vanityserve/vanityserve/pkg/ranking"
)

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	MinWordLength int
	MaxCandidates int
	TopK          int
	MaxResults    int
	// DigitGrouping splits literal digits for display; nil uses DefaultGrouping.
	DigitGrouping []int
	Weights       Weights
	RankTimeout   time.Duration
	// CollaboratorName labels the collaborator in logs and fallback errors.
	CollaboratorName string
}

// DefaultOptions mirror the shipped configuration.
func DefaultOptions() Options {
	return Options{
		MinWordLength: dictionary.DefaultMinWordLength,
		MaxCandidates: DefaultMaxCandidates,
		TopK:          DefaultMaxCandidates,
		MaxResults:    5,
		Weights:       DefaultWeights(),
		RankTimeout:   DefaultRankTimeout,
	}
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.MinWordLength <= 0 {
		o.MinWordLength = def.MinWordLength
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = def.MaxCandidates
	}
	if o.TopK <= 0 || o.TopK > o.MaxCandidates {
		o.TopK = o.MaxCandidates
	}
	if o.MaxResults <= 0 || o.MaxResults > o.TopK {
		o.MaxResults = o.TopK
	}
	if o.Weights == (Weights{}) {
		o.Weights = def.Weights
	}
	if o.RankTimeout <= 0 {
		o.RankTimeout = def.RankTimeout
	}
}

// Engine answers lookups against one immutable index. It is safe for
// concurrent use.
type Engine struct {
	index   *dictionary.Index
	mapping keypad.Mapping
	opts    Options
	ranker  *Ranker
	log     *log.Logger
	now     func() time.Time
}

// NewEngine builds an engine. collaborator may be nil.
func NewEngine(index *dictionary.Index, opts Options, collaborator ranking.Collaborator) (*Engine, error) {
	if index == nil {
		return nil, &dictionary.CorpusError{Op: "engine", Err: errors.New("nil index")}
	}
	opts.normalize()
	l := logger.New("vanity")
	return &Engine{
		index:   index,
		mapping: keypad.Standard,
		opts:    opts,
		ranker: &Ranker{
			Weights:      opts.Weights,
			TopK:         opts.TopK,
			MaxResults:   opts.MaxResults,
			Collaborator: collaborator,
			Name:         opts.CollaboratorName,
			Timeout:      opts.RankTimeout,
			Grouping:     opts.DigitGrouping,
			Logger:       l,
		},
		log: l,
		now: time.Now,
	}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Lookup computes the ranked vanity renderings of number. It fails only when
// number is not a digit string or ctx is already done; collaborator problems
// are reported through Result.Fallback.
func (e *Engine) Lookup(ctx context.Context, number phone.Number) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utils.IsOnlyNumbers(number.Digits) {
		return nil, &phone.ValidationError{Input: number.Digits, Reason: "not a digit string"}
	}

	start := e.now()
	spans := FindSpans(number, e.mapping, e.index, e.opts.MinWordLength)
	candidates := ComposeCandidates(number.Digits, spans, number.Protected, e.opts.MaxCandidates)
	outcome := e.ranker.Rank(ctx, number.Digits, candidates)

	ranked := outcome.Candidates
	if len(ranked) > e.opts.MaxResults {
		ranked = ranked[:e.opts.MaxResults]
	}
	grouping := e.opts.DigitGrouping
	if grouping == nil {
		grouping = DefaultGrouping(number.Len())
	}
	res := &Result{
		ID:         ulid.Make().String(),
		Digits:     number.Digits,
		Candidates: make([]Formatted, len(ranked)),
		Ranking:    outcome.Mode,
		Fallback:   outcome.Fallback,
		CreatedAt:  start.UTC(),
	}
	if outcome.Fallback {
		res.FallbackReason = string(outcome.Reason)
	}
	for i, c := range ranked {
		res.Candidates[i] = Format(c, grouping)
	}

	e.log.Debug("lookup",
		"digits", number.Digits,
		"spans", len(spans),
		"candidates", len(candidates),
		"ranking", outcome.Mode,
		"took", e.now().Sub(start))
	return res, nil
}

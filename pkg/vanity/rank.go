package vanity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vanityserve/vanityserve/internal/logger"
	"github.com/vanityserve/vanityserve/pkg/ranking"
)

// DefaultRankTimeout bounds one ranking collaborator call.
const DefaultRankTimeout = 2 * time.Second

// Weights of the programmatic score. Coverage should dominate: with the
// defaults one extra letter outweighs any difference in word count or length
// possible within 15 digits.
type Weights struct {
	Coverage float64
	Words    float64
	Longest  float64
}

// DefaultWeights returns 100 per letter, -10 per word and 1 per letter of the
// longest word.
func DefaultWeights() Weights {
	return Weights{Coverage: 100, Words: 10, Longest: 1}
}

// Ranker scores candidates and optionally asks a collaborator to reorder them.
type Ranker struct {
	Weights Weights
	// TopK candidates are kept and, at most, submitted to the collaborator.
	TopK int
	// MaxResults is the answer size requested from the collaborator.
	MaxResults   int
	Collaborator ranking.Collaborator
	// Name identifies the collaborator in errors and logs.
	Name    string
	Timeout time.Duration
	// Grouping formats the display forms sent to the collaborator; nil uses
	// DefaultGrouping for the number length.
	Grouping []int
	Logger   *log.Logger
}

// RankOutcome is the ranked list plus how it was obtained.
type RankOutcome struct {
	Candidates []ScoredCandidate
	Mode       string
	Fallback   bool
	Reason     ranking.Reason
	Err        error
}

// Score returns the programmatic score of c.
func (r *Ranker) Score(c Candidate) float64 {
	w := r.Weights
	return w.Coverage*float64(c.Coverage()) - w.Words*float64(len(c.Spans)) + w.Longest*float64(c.LongestWord())
}

// Programmatic scores candidates, sorts them by score keeping the input order
// for ties, and keeps the top K. The result depends only on its input.
func (r *Ranker) Programmatic(candidates []Candidate) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredCandidate{Candidate: c, Score: r.Score(c)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if r.TopK > 0 && len(scored) > r.TopK {
		scored = scored[:r.TopK]
	}
	return scored
}

// Rank orders candidates. Without a collaborator, or when there is nothing
// but the literal number to rank, the order is programmatic. Otherwise the
// top K go to the collaborator under Timeout; any failure keeps the
// programmatic order and reports a fallback.
func (r *Ranker) Rank(ctx context.Context, digits string, candidates []Candidate) RankOutcome {
	scored := r.Programmatic(candidates)
	out := RankOutcome{Candidates: scored, Mode: RankingProgrammatic}
	if r.Collaborator == nil || !hasWords(scored) {
		return out
	}

	req := r.request(digits, scored)
	resp, err := r.call(ctx, req)
	if err == nil {
		err = ranking.Validate(req, resp)
	}
	if err != nil {
		err = &ranking.CollaboratorError{Name: r.name(), Err: err}
		out.Mode = RankingFallback
		out.Fallback = true
		out.Reason = ranking.Classify(err)
		out.Err = err
		r.logger().Warn("ranking fallback", "digits", digits, "reason", out.Reason, "err", err)
		return out
	}

	out.Candidates = merge(scored, resp)
	out.Mode = RankingExternal
	return out
}

func hasWords(scored []ScoredCandidate) bool {
	for _, s := range scored {
		if len(s.Spans) > 0 {
			return true
		}
	}
	return false
}

func (r *Ranker) request(digits string, scored []ScoredCandidate) ranking.Request {
	req := ranking.Request{
		OriginalDigits: digits,
		Candidates:     make([]ranking.CandidateForm, len(scored)),
		MaxResults:     r.MaxResults,
	}
	if req.MaxResults <= 0 || req.MaxResults > len(scored) {
		req.MaxResults = len(scored)
	}
	grouping := r.Grouping
	if grouping == nil {
		grouping = DefaultGrouping(len(digits))
	}
	for i, s := range scored {
		req.Candidates[i] = ranking.CandidateForm{
			ID:            strconv.Itoa(i),
			DisplayForm:   Format(ScoredCandidate{Candidate: s.Candidate}, grouping).Display,
			CoverageScore: float64(s.Coverage()),
		}
	}
	return req
}

type rankReply struct {
	resp ranking.Response
	err  error
}

// call runs the collaborator in its own goroutine so that one ignoring ctx
// still cannot hold the lookup past the timeout.
func (r *Ranker) call(ctx context.Context, req ranking.Request) (ranking.Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRankTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply := make(chan rankReply, 1)
	go func() {
		resp, err := r.Collaborator.Rank(ctx, req)
		reply <- rankReply{resp: resp, err: err}
	}()

	select {
	case rep := <-reply:
		if rep.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ranking.Response{}, fmt.Errorf("%w: %w", ranking.ErrTimeout, rep.err)
		}
		return rep.resp, rep.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ranking.Response{}, fmt.Errorf("%w after %s", ranking.ErrTimeout, timeout)
		}
		return ranking.Response{}, ctx.Err()
	}
}

// merge puts the referenced candidates first, by collaborator rank and then
// submission order, followed by the others in programmatic order.
func merge(scored []ScoredCandidate, resp ranking.Response) []ScoredCandidate {
	type ref struct {
		index int
		res   ranking.Result
	}
	refs := make([]ref, 0, len(resp.Results))
	referenced := make([]bool, len(scored))
	for _, res := range resp.Results {
		i, _ := strconv.Atoi(res.ID)
		refs = append(refs, ref{index: i, res: res})
		referenced[i] = true
	}
	sort.SliceStable(refs, func(a, b int) bool {
		if refs[a].res.Rank != refs[b].res.Rank {
			return refs[a].res.Rank < refs[b].res.Rank
		}
		return refs[a].index < refs[b].index
	})

	out := make([]ScoredCandidate, 0, len(scored))
	for _, rf := range refs {
		sc := scored[rf.index]
		score := rf.res.Score
		sc.ExternalRank = rf.res.Rank
		sc.ExternalScore = &score
		sc.ExternalText = rf.res.SpeechText
		out = append(out, sc)
	}
	for i, sc := range scored {
		if !referenced[i] {
			out = append(out, sc)
		}
	}
	return out
}

func (r *Ranker) name() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%T", r.Collaborator)
}

func (r *Ranker) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logger.New("rank")
}

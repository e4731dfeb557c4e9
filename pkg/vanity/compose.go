package vanity

import (
	"container/heap"
	"sort"
)

// DefaultMaxCandidates bounds how many candidates ComposeCandidates returns.
const DefaultMaxCandidates = 10

// ComposeCandidates combines non-overlapping spans into full-length
// candidates, best first, at most maxCandidates of them (DefaultMaxCandidates
// when maxCandidates < 1).
//
// Candidates are totally ordered by
//
//	more covered letters, then fewer spans, then earlier span starts compared
//	span by span, then lexicographically smaller words.
//
// Spans starting inside the protected prefix, or that do not fit digits, are
// ignored. When no span survives, the only candidate is the literal digits;
// otherwise the literal rendering is never returned.
func ComposeCandidates(digits string, spans []WordSpan, protectedPrefixLength, maxCandidates int) []Candidate {
	if maxCandidates < 1 {
		maxCandidates = DefaultMaxCandidates
	}
	c := newComposer(digits, spans, protectedPrefixLength)

	// Best-first enumeration over a partition of the selection space. A
	// subproblem forces some spans and bans others; its optimum is found by
	// the DP in solve. Popping a subproblem with optimum T = f1..fm (free
	// spans of T) splits the rest of it into children i that force f1..fi-1
	// and ban fi, so no selection is produced twice.
	root := &subproblem{forced: make([]bool, len(c.spans)), banned: make([]bool, len(c.spans))}
	root.solution = c.solve(root.forced, root.banned)
	pq := &subproblemQueue{c: c}
	heap.Push(pq, root)

	var out []Candidate
	for pq.Len() > 0 && len(out) < maxCandidates {
		node := heap.Pop(pq).(*subproblem)
		if len(node.solution) == 0 && len(out) > 0 {
			continue
		}
		out = append(out, c.candidate(node.solution))

		forced := append([]bool(nil), node.forced...)
		for _, idx := range node.solution {
			if node.forced[idx] {
				continue
			}
			banned := append([]bool(nil), node.banned...)
			banned[idx] = true
			child := &subproblem{forced: append([]bool(nil), forced...), banned: banned}
			child.solution = c.solve(child.forced, child.banned)
			heap.Push(pq, child)
			forced[idx] = true
		}
	}
	return out
}

type composer struct {
	digits  string
	spans   []WordSpan
	byStart [][]int
}

func newComposer(digits string, spans []WordSpan, protected int) *composer {
	c := &composer{digits: digits, byStart: make([][]int, len(digits)+1)}
	seen := make(map[WordSpan]bool, len(spans))
	for _, s := range spans {
		if s.Start < protected || s.Start < 0 || s.End > len(digits) || s.Len() != len(s.Word) || s.Len() == 0 || seen[s] {
			continue
		}
		seen[s] = true
		c.spans = append(c.spans, s)
	}
	sort.Slice(c.spans, func(i, j int) bool {
		a, b := c.spans[i], c.spans[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Word < b.Word
	})
	for i, s := range c.spans {
		c.byStart[s.Start] = append(c.byStart[s.Start], i)
	}
	return c
}

// solve returns the best selection, as span indices in position order, that
// contains every forced span and no banned one.
//
// best[pos] is the best selection within digits[pos:]:
//
//	best[N]   = none
//	best[pos] = max(best[pos+1], span s at pos + best[s.End])
//
// Prefixing a fixed span keeps the order between two suffixes, so the DP is
// exact for the full candidate order, not only for coverage.
func (c *composer) solve(forced, banned []bool) []int {
	n := len(c.digits)
	forcedAt := make([]int, n+1)
	for i := range forcedAt {
		forcedAt[i] = -1
	}
	for i, f := range forced {
		if f {
			forcedAt[c.spans[i].Start] = i
		}
	}
	// nextForced[pos] is the first forced start at or after pos.
	nextForced := make([]int, n+2)
	nextForced[n], nextForced[n+1] = n, n
	for pos := n - 1; pos >= 0; pos-- {
		nextForced[pos] = nextForced[pos+1]
		if forcedAt[pos] >= 0 {
			nextForced[pos] = pos
		}
	}

	best := make([][]int, n+1)
	for pos := n - 1; pos >= 0; pos-- {
		if f := forcedAt[pos]; f >= 0 {
			best[pos] = prepend(f, best[c.spans[f].End])
			continue
		}
		cur := best[pos+1]
		for _, idx := range c.byStart[pos] {
			s := c.spans[idx]
			if banned[idx] || nextForced[pos+1] < s.End {
				continue
			}
			if cand := prepend(idx, best[s.End]); c.better(cand, cur) {
				cur = cand
			}
		}
		best[pos] = cur
	}
	return best[0]
}

func prepend(idx int, rest []int) []int {
	out := make([]int, 0, len(rest)+1)
	out = append(out, idx)
	return append(out, rest...)
}

// better reports whether selection a strictly precedes b.
func (c *composer) better(a, b []int) bool {
	if ca, cb := c.coverage(a), c.coverage(b); ca != cb {
		return ca > cb
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if sa, sb := c.spans[a[i]].Start, c.spans[b[i]].Start; sa != sb {
			return sa < sb
		}
	}
	for i := range a {
		if wa, wb := c.spans[a[i]].Word, c.spans[b[i]].Word; wa != wb {
			return wa < wb
		}
	}
	return false
}

func (c *composer) coverage(sel []int) int {
	n := 0
	for _, idx := range sel {
		n += c.spans[idx].Len()
	}
	return n
}

func (c *composer) candidate(sel []int) Candidate {
	cand := Candidate{Digits: c.digits}
	if len(sel) > 0 {
		cand.Spans = make([]WordSpan, len(sel))
		for i, idx := range sel {
			cand.Spans[i] = c.spans[idx]
		}
	}
	return cand
}

type subproblem struct {
	forced, banned []bool
	solution       []int
}

type subproblemQueue struct {
	c     *composer
	items []*subproblem
}

func (q *subproblemQueue) Len() int { return len(q.items) }
func (q *subproblemQueue) Less(i, j int) bool {
	return q.c.better(q.items[i].solution, q.items[j].solution)
}
func (q *subproblemQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *subproblemQueue) Push(x any)    { q.items = append(q.items, x.(*subproblem)) }
func (q *subproblemQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

package vanity

import (
	"strings"
	"time"
)

// WordSpan is a dictionary word spelled over Digits[Start:End].
type WordSpan struct {
	Start int    `json:"start" msgpack:"s"`
	End   int    `json:"end" msgpack:"e"`
	Word  string `json:"word" msgpack:"w"`
}

// Len returns the number of positions the span covers.
func (s WordSpan) Len() int { return s.End - s.Start }

// Candidate is a full-length rendering of a number: Spans are sorted by
// Start, disjoint, and every other position stays a literal digit.
type Candidate struct {
	Digits string
	Spans  []WordSpan
}

// Text renders span letters uppercase and all other positions as digits.
func (c Candidate) Text() string {
	b := []byte(c.Digits)
	for _, s := range c.Spans {
		for i := 0; i < s.Len(); i++ {
			b[s.Start+i] = upper(s.Word[i])
		}
	}
	return string(b)
}

// Coverage returns how many positions are letters.
func (c Candidate) Coverage() int {
	n := 0
	for _, s := range c.Spans {
		n += s.Len()
	}
	return n
}

// LongestWord returns the length of the longest span, 0 for none.
func (c Candidate) LongestWord() int {
	n := 0
	for _, s := range c.Spans {
		n = max(n, s.Len())
	}
	return n
}

// Words returns the span words in position order.
func (c Candidate) Words() []string {
	words := make([]string, len(c.Spans))
	for i, s := range c.Spans {
		words[i] = s.Word
	}
	return words
}

// ScoredCandidate is a candidate with its programmatic score and, when a
// ranking collaborator answered, its opinion.
type ScoredCandidate struct {
	Candidate
	Score         float64
	ExternalRank  int
	ExternalScore *float64
	ExternalText  string
}

// Formatted is a candidate ready to present.
type Formatted struct {
	Text          string     `json:"text" msgpack:"t"`
	Display       string     `json:"display" msgpack:"d"`
	Speech        string     `json:"speech" msgpack:"sp"`
	Score         float64    `json:"score" msgpack:"sc"`
	ExternalScore *float64   `json:"externalScore,omitempty" msgpack:"xs,omitempty"`
	Words         []WordSpan `json:"words,omitempty" msgpack:"w,omitempty"`
}

// Ranking modes reported in Result.Ranking.
const (
	RankingProgrammatic = "programmatic"
	RankingExternal     = "external"
	RankingFallback     = "fallback"
)

// Result is the answer for one number.
type Result struct {
	ID             string      `json:"id" msgpack:"id"`
	Digits         string      `json:"digits" msgpack:"n"`
	Candidates     []Formatted `json:"candidates" msgpack:"c"`
	Ranking        string      `json:"ranking" msgpack:"r"`
	Fallback       bool        `json:"fallback" msgpack:"f"`
	FallbackReason string      `json:"fallbackReason,omitempty" msgpack:"fr,omitempty"`
	CreatedAt      time.Time   `json:"createdAt" msgpack:"at"`
}

// Summary joins the display forms with ", " for playback.
func (r *Result) Summary() string {
	parts := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		parts[i] = c.Display
	}
	return strings.Join(parts, ", ")
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

package vanity

import (
	"strings"
)

var digitNames = [10]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

// DefaultGrouping returns the usual North American grouping for n digits, or
// nil when there is none.
func DefaultGrouping(n int) []int {
	switch n {
	case 7:
		return []int{3, 4}
	case 10:
		return []int{3, 3, 4}
	case 11:
		return []int{1, 3, 3, 4}
	}
	return nil
}

type segment struct {
	text string
	word bool
	// single marks a word run built from one-letter fields.
	single bool
}

// Format renders c for display and for speech.
//
// Literal digit runs are split at the boundaries of digitGrouping and every
// word becomes one uppercase segment; segments are joined with "-". A
// grouping that does not cover every digit leaves the rest as one group.
//
// ExternalText from a collaborator replaces the display only when it consists
// of letters, digits and externalSeparators, and its letters and digits,
// ignoring case, are exactly Text(). Letters are shown uppercase and the
// speech follows its segmentation.
func Format(c ScoredCandidate, digitGrouping []int) Formatted {
	f := Formatted{
		Text:          c.Text(),
		Score:         c.Score,
		ExternalScore: c.ExternalScore,
		Words:         c.Spans,
	}

	if ext := strings.TrimSpace(c.ExternalText); acceptExternal(ext, f.Text) {
		f.Display = strings.ToUpper(ext)
		f.Speech = speak(externalSegments(ext))
		return f
	}

	segs := segments(c.Candidate, digitGrouping)
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.text
	}
	f.Display = strings.Join(parts, "-")
	f.Speech = speak(segs)
	return f
}

func segments(c Candidate, grouping []int) []segment {
	boundary := make([]bool, len(c.Digits)+1)
	at := 0
	for _, g := range grouping {
		if g <= 0 {
			continue
		}
		at += g
		if at >= len(c.Digits) {
			break
		}
		boundary[at] = true
	}

	var segs []segment
	literal := func(from, to int) {
		start := from
		for i := from + 1; i <= to; i++ {
			if i == to || boundary[i] {
				segs = append(segs, segment{text: c.Digits[start:i]})
				start = i
			}
		}
	}
	pos := 0
	for _, s := range c.Spans {
		if s.Start > pos {
			literal(pos, s.Start)
		}
		segs = append(segs, segment{text: strings.ToUpper(s.Word), word: true})
		pos = s.End
	}
	if pos < len(c.Digits) {
		literal(pos, len(c.Digits))
	}
	return segs
}

// externalSeparators may appear in collaborator text between letters and digits.
const externalSeparators = " -.()"

func acceptExternal(ext, text string) bool {
	if ext == "" {
		return false
	}
	for _, r := range ext {
		if !isAlnum(r) && !strings.ContainsRune(externalSeparators, r) {
			return false
		}
	}
	return alnumUpper(ext) == text
}

// externalSegments splits collaborator text at separators, then into runs of
// one class. Letters spelled out one by one ("C A L L") form a single word.
func externalSegments(text string) []segment {
	var segs []segment
	fields := strings.FieldsFunc(text, func(r rune) bool { return !isAlnum(r) })
	for _, field := range fields {
		start := 0
		for i := 1; i <= len(field); i++ {
			if i == len(field) || isDigit(field[i]) != isDigit(field[start]) {
				run := segment{text: strings.ToUpper(field[start:i]), word: !isDigit(field[start])}
				if n := len(segs); n > 0 && run.word && len(run.text) == 1 &&
					segs[n-1].word && segs[n-1].single {
					segs[n-1].text += run.text
				} else {
					run.single = run.word && len(run.text) == 1
					segs = append(segs, run)
				}
				start = i
			}
		}
	}
	return segs
}

func speak(segs []segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		if s.word {
			parts[i] = s.text + ", spelled " + strings.Join(strings.Split(s.text, ""), " ")
			continue
		}
		names := make([]string, len(s.text))
		for j := 0; j < len(s.text); j++ {
			names[j] = digitNames[s.text[j]-'0']
		}
		parts[i] = strings.Join(names, " ")
	}
	return strings.Join(parts, ", ")
}

func alnumUpper(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

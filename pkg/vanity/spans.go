package vanity

import (
	"sort"

	"github.com/vanityserve/vanityserve/pkg/dictionary"
	"github.com/vanityserve/vanityserve/pkg/keypad"
	"github.com/vanityserve/vanityserve/pkg/phone"
)

// FindSpans returns every dictionary word that can be spelled over a
// contiguous digit range of number, sorted by (Start, End, Word).
//
// From each start position it walks the index depth-first, trying each letter
// of the next digit and descending only while the letters so far are the
// prefix of some indexed word. Digits without letters end the walk. The work
// is bounded by the dictionary's branching, not by the 4^N letter
// combinations. minWordLength below 1 falls back to the index minimum.
func FindSpans(number phone.Number, mapping keypad.Mapping, index *dictionary.Index, minWordLength int) []WordSpan {
	if index == nil {
		return nil
	}
	if minWordLength < 1 {
		minWordLength = index.MinWordLength()
	}
	f := spanFinder{digits: number.Digits, mapping: &mapping, minLen: minWordLength}
	for start := range len(f.digits) {
		f.start = start
		f.walk(index.Root(), start)
	}
	sort.Slice(f.found, func(i, j int) bool {
		a, b := f.found[i], f.found[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Word < b.Word
	})
	return f.found
}

type spanFinder struct {
	digits  string
	mapping *keypad.Mapping
	minLen  int
	start   int
	found   []WordSpan
}

func (f *spanFinder) walk(cur dictionary.Cursor, pos int) {
	if pos >= len(f.digits) {
		return
	}
	for _, letter := range f.mapping.Letters(f.digits[pos]) {
		next, ok := cur.Descend(letter)
		if !ok {
			continue
		}
		if next.Depth() >= f.minLen && next.Terminal() {
			f.found = append(f.found, WordSpan{Start: f.start, End: pos + 1, Word: next.Word()})
		}
		f.walk(next, pos+1)
	}
}

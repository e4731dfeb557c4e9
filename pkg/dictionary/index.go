// Package dictionary builds the read-only word index the vanity search walks.
//
// An Index is a Patricia trie over lowercase a-z words. It is built once from a
// corpus and never modified afterwards, so any number of goroutines may query it
// without locking.
package dictionary

import (
	"strings"
	"unicode"

	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vanityserve/vanityserve/internal/utils"
)

// DefaultMinWordLength is the shortest word worth spelling on a keypad.
const DefaultMinWordLength = 3

// Index answers prefix and whole-word queries in O(len(query)).
type Index struct {
	trie          *patricia.Trie
	words         int
	skipped       int
	minWordLength int
}

// IndexOption customises BuildIndex.
type IndexOption func(*indexConfig)

type indexConfig struct {
	minWordLength int
	maxWords      int
}

// WithMinWordLength sets the minimum indexed word length.
func WithMinWordLength(n int) IndexOption {
	return func(c *indexConfig) {
		if n > 0 {
			c.minWordLength = n
		}
	}
}

// WithMaxWords stops indexing after n accepted words; 0 means no limit.
func WithMaxWords(n int) IndexOption {
	return func(c *indexConfig) {
		if n >= 0 {
			c.maxWords = n
		}
	}
}

// BuildIndex indexes words in corpus order. The first occurrence of a word
// fixes its rank. Entries that are not alphabetic after lowercasing and accent
// folding, or that are too short, are skipped.
func BuildIndex(words []string, opts ...IndexOption) (*Index, error) {
	if len(words) == 0 {
		return nil, &CorpusError{Op: "build", Err: ErrEmptyCorpus}
	}
	cfg := indexConfig{minWordLength: DefaultMinWordLength}
	for _, opt := range opts {
		opt(&cfg)
	}

	idx := &Index{trie: patricia.NewTrie(), minWordLength: cfg.minWordLength}
	fold := newFolder()
	for _, raw := range words {
		if cfg.maxWords > 0 && idx.words >= cfg.maxWords {
			break
		}
		word := fold.normalize(raw)
		if len(word) < cfg.minWordLength || !utils.IsLowerAlpha(word) {
			idx.skipped++
			continue
		}
		if idx.trie.Insert(patricia.Prefix(word), idx.words+1) {
			idx.words++
		}
	}

	if idx.words == 0 {
		return nil, &CorpusError{Op: "build", Err: ErrNoIndexableWords}
	}
	return idx, nil
}

// HasPrefix reports whether any indexed word starts with prefix.
func (ix *Index) HasPrefix(prefix string) bool {
	return ix.trie.MatchSubtree(patricia.Prefix(strings.ToLower(prefix)))
}

// IsWord reports whether word is indexed.
func (ix *Index) IsWord(word string) bool {
	return ix.trie.Match(patricia.Prefix(strings.ToLower(word)))
}

// Rank returns the corpus position of word, starting at 1.
func (ix *Index) Rank(word string) (int, bool) {
	item := ix.trie.Get(patricia.Prefix(strings.ToLower(word)))
	if item == nil {
		return 0, false
	}
	rank, ok := item.(int)
	return rank, ok
}

// Len returns the number of indexed words.
func (ix *Index) Len() int { return ix.words }

// MinWordLength returns the shortest word length accepted at build time.
func (ix *Index) MinWordLength() int { return ix.minWordLength }

// Stats returns statistics about the loaded dictionary
func (ix *Index) Stats() map[string]int {
	return map[string]int{
		"totalWords":    ix.words,
		"skippedWords":  ix.skipped,
		"minWordLength": ix.minWordLength,
	}
}

// Root returns a cursor positioned before the first letter.
func (ix *Index) Root() Cursor {
	return Cursor{idx: ix}
}

// Cursor is a position in the trie reached by a sequence of letters.
// Cursors are values; descending never changes the receiver.
type Cursor struct {
	idx  *Index
	path []byte
}

// Descend extends the cursor by one letter. It fails as soon as no indexed
// word carries the extended prefix, which is what prunes the keypad search.
// patricia only matches from the root, so a step costs O(depth).
func (c Cursor) Descend(letter byte) (Cursor, bool) {
	if letter >= 'A' && letter <= 'Z' {
		letter += 'a' - 'A'
	}
	next := make([]byte, len(c.path)+1)
	copy(next, c.path)
	next[len(c.path)] = letter
	if !c.idx.trie.MatchSubtree(patricia.Prefix(next)) {
		return Cursor{}, false
	}
	return Cursor{idx: c.idx, path: next}, true
}

// Terminal reports whether the letters so far spell an indexed word.
func (c Cursor) Terminal() bool {
	return len(c.path) > 0 && c.idx.trie.Match(patricia.Prefix(c.path))
}

// Word returns the letters walked so far.
func (c Cursor) Word() string { return string(c.path) }

// Depth returns how many letters were walked.
func (c Cursor) Depth() int { return len(c.path) }

// folder lowercases and strips combining marks ("Café" -> "cafe").
type folder struct {
	t transform.Transformer
}

func newFolder() *folder {
	return &folder{t: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)}
}

func (f *folder) normalize(s string) string {
	s = strings.TrimSpace(s)
	if isASCII(s) {
		return strings.ToLower(s)
	}
	out, _, err := transform.String(f.t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

package dictionary

import (
	"errors"
	"fmt"
)

// ErrCorpus is matched by every *CorpusError.
var ErrCorpus = errors.New("dictionary corpus unavailable")

var (
	ErrEmptyCorpus      = errors.New("corpus is empty")
	ErrNoIndexableWords = errors.New("corpus has no indexable words")
)

// CorpusError reports a corpus that could not be read or indexed. It is fatal
// at startup: no lookup can be served without an index.
type CorpusError struct {
	Op   string
	Path string
	Err  error
}

func (e *CorpusError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("corpus %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("corpus %s: %v", e.Op, e.Err)
}

func (e *CorpusError) Unwrap() []error { return []error{ErrCorpus, e.Err} }

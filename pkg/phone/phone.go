// Package phone validates caller numbers before any vanity work starts.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vanityserve/vanityserve/internal/utils"
)

// ErrInvalidNumber is matched by every *ValidationError.
var ErrInvalidNumber = errors.New("invalid phone number")

// ValidationError describes why an input was rejected.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid phone number %q: %s", e.Input, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidNumber }

// Number is a validated digit sequence. Positions below Protected are never
// replaced by letters.
type Number struct {
	Digits    string
	Protected int
}

// Len returns the number of digits.
func (n Number) Len() int { return len(n.Digits) }

// Options control validation and which leading digits are protected.
type Options struct {
	MinDigits int
	MaxDigits int
	// StripFormatting drops spaces, dashes, dots, parentheses and '+' first.
	StripFormatting bool
	// ProtectedPrefix is the national prefix (area code) length kept literal.
	ProtectedPrefix int
	// CountryCode, when the number is NationalLength+len(CountryCode) digits
	// long and starts with it, is protected in addition to ProtectedPrefix.
	CountryCode    string
	NationalLength int
}

// DefaultOptions accepts North American numbers with or without the leading 1.
func DefaultOptions() Options {
	return Options{
		MinDigits:       7,
		MaxDigits:       15,
		StripFormatting: true,
		ProtectedPrefix: 3,
		CountryCode:     "1",
		NationalLength:  10,
	}
}

// Parse validates raw and computes the protected prefix.
func Parse(raw string, opts Options) (Number, error) {
	s := strings.TrimSpace(raw)
	if opts.StripFormatting {
		s = utils.StripSeparators(s)
	}
	if s == "" {
		return Number{}, &ValidationError{Input: raw, Reason: "empty"}
	}
	if !utils.IsOnlyNumbers(s) {
		return Number{}, &ValidationError{Input: raw, Reason: "contains non-digit characters"}
	}
	if opts.MinDigits > 0 && len(s) < opts.MinDigits {
		return Number{}, &ValidationError{Input: raw, Reason: fmt.Sprintf("shorter than %d digits", opts.MinDigits)}
	}
	if opts.MaxDigits > 0 && len(s) > opts.MaxDigits {
		return Number{}, &ValidationError{Input: raw, Reason: fmt.Sprintf("longer than %d digits", opts.MaxDigits)}
	}

	protected := max(opts.ProtectedPrefix, 0)
	cc := opts.CountryCode
	if cc != "" && opts.NationalLength > 0 && len(s) == opts.NationalLength+len(cc) && strings.HasPrefix(s, cc) {
		protected += len(cc)
	}
	return Number{Digits: s, Protected: min(protected, len(s))}, nil
}

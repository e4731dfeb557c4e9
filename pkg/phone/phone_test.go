package phone

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	opts := DefaultOptions()
	testCases := []struct {
		description   string
		input         string
		wantDigits    string
		wantProtected int
	}{
		{"national number protects area code", "2125552255", "2125552255", 3},
		{"country code is protected too", "+1 (212) 555-2255", "12125552255", 4},
		{"eleven digits without country code", "42125552255", "42125552255", 3},
		{"seven digit local number", "5552255", "5552255", 3},
		{"surrounding whitespace", "  2125552255\n", "2125552255", 3},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			n, err := Parse(tc.input, opts)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.input, err)
			}
			if n.Digits != tc.wantDigits || n.Protected != tc.wantProtected {
				t.Errorf("Parse(%q) = %+v, want digits %q protected %d", tc.input, n, tc.wantDigits, tc.wantProtected)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	opts := DefaultOptions()
	for _, input := range []string{"", "   ", "555-CALL", "123456", "1234567890123456"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input, opts)
			if !errors.Is(err, ErrInvalidNumber) {
				t.Fatalf("Parse(%q) error = %v, want ErrInvalidNumber", input, err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Input != input {
				t.Errorf("expected *ValidationError carrying the input, got %#v", err)
			}
		})
	}
}

func TestParseStrictKeepsSeparators(t *testing.T) {
	opts := DefaultOptions()
	opts.StripFormatting = false
	if _, err := Parse("212-555-2255", opts); !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("expected rejection without StripFormatting, got %v", err)
	}
}

func TestParseProtectedNeverExceedsLength(t *testing.T) {
	opts := Options{MinDigits: 1, MaxDigits: 15, ProtectedPrefix: 10}
	n, err := Parse("767", opts)
	if err != nil {
		t.Fatal(err)
	}
	if n.Protected != 3 {
		t.Errorf("Protected = %d, want 3", n.Protected)
	}
}

package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStripSeparators(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"+1 (212) 555-2255", "12125552255"},
		{"212.555.2255", "2125552255"},
		{"2125552255", "2125552255"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := StripSeparators(tc.in); got != tc.want {
			t.Errorf("StripSeparators(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCharacterClasses(t *testing.T) {
	if !IsOnlyNumbers("0123456789") || IsOnlyNumbers("") || IsOnlyNumbers("12a") {
		t.Error("IsOnlyNumbers misclassified input")
	}
	if !IsLowerAlpha("call") || IsLowerAlpha("Call") || IsLowerAlpha("") || IsLowerAlpha("can't") {
		t.Error("IsLowerAlpha misclassified input")
	}
}

func TestFormatWithCommas(t *testing.T) {
	testCases := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for n, want := range testCases {
		if got := FormatWithCommas(n); got != want {
			t.Errorf("FormatWithCommas(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestSeenFilter(t *testing.T) {
	f := NewSeenFilter("a")
	if f.ShouldInclude("a") {
		t.Error("initial key should be seen")
	}
	if !f.ShouldInclude("b") || f.ShouldInclude("b") {
		t.Error("b should be included exactly once")
	}
	if f.Len() != 2 {
		t.Errorf("Len = %d, want 2", f.Len())
	}
}

func TestExtractHelpers(t *testing.T) {
	data := map[string]any{
		"n":     int64(4),
		"f":     1.5,
		"s":     "x",
		"b":     true,
		"ints":  []any{int64(3), int64(3), int64(4)},
		"mixed": []any{int64(3), "x"},
	}
	if v, ok := ExtractInt64(data, "n"); !ok || v != 4 {
		t.Errorf("ExtractInt64 = %d, %v", v, ok)
	}
	if v, ok := ExtractFloat(data, "n"); !ok || v != 4 {
		t.Errorf("ExtractFloat(int) = %v, %v", v, ok)
	}
	if v, ok := ExtractFloat(data, "f"); !ok || v != 1.5 {
		t.Errorf("ExtractFloat = %v, %v", v, ok)
	}
	if v, ok := ExtractString(data, "s"); !ok || v != "x" {
		t.Errorf("ExtractString = %q, %v", v, ok)
	}
	if v, ok := ExtractInts(data, "ints"); !ok || len(v) != 3 || v[2] != 4 {
		t.Errorf("ExtractInts = %v, %v", v, ok)
	}
	if _, ok := ExtractInts(data, "mixed"); ok {
		t.Error("ExtractInts should reject mixed arrays")
	}
}

func TestIsValidCorpusPath(t *testing.T) {
	dir := t.TempDir()
	if IsValidCorpusPath(dir) {
		t.Error("empty dir is not a corpus")
	}
	if err := os.WriteFile(filepath.Join(dir, "dict_0001.bin"), []byte{0, 0, 0, 0}, 0644); err != nil {
		t.Fatal(err)
	}
	if !IsValidCorpusPath(dir) {
		t.Error("dir with chunk should be a corpus")
	}
	words := filepath.Join(dir, "words.txt")
	if err := os.WriteFile(words, []byte("call\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !IsValidCorpusPath(words) {
		t.Error("non-empty word file should be a corpus")
	}
	if IsValidCorpusPath(filepath.Join(dir, "missing.txt")) {
		t.Error("missing file is not a corpus")
	}
}

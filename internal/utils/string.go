package utils

import (
	"strconv"
	"strings"
)

// IsSeparator checks if a byte is a formatting character commonly typed inside phone numbers
func IsSeparator(c byte) bool {
	return c == ' ' || c == '-' || c == '.' || c == '(' || c == ')' || c == '+' || c == '/'
}

// StripSeparators removes every separator byte from s
func StripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if !IsSeparator(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// IsOnlyNumbers checks if a string consists entirely of ASCII digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsLowerAlpha checks if a string consists entirely of ASCII a-z
func IsLowerAlpha(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n int) string {
	str := strconv.Itoa(n)
	if n < 1000 && n > -1000 {
		return str
	}
	sign := ""
	if str[0] == '-' {
		sign, str = "-", str[1:]
	}
	var b strings.Builder
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(char)
	}
	return sign + b.String()
}

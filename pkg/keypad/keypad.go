// Package keypad holds the telephone keypad table used to turn digits into letters and back.
package keypad

// Mapping assigns each digit 0-9 an ordered set of uppercase letters.
// Digits without letters (0 and 1 on a standard keypad) map to nil.
type Mapping [10][]byte

// Standard is the ITU E.161 keypad layout. It is shared by every request and must not be modified.
var Standard = Mapping{
	2: []byte("ABC"),
	3: []byte("DEF"),
	4: []byte("GHI"),
	5: []byte("JKL"),
	6: []byte("MNO"),
	7: []byte("PQRS"),
	8: []byte("TUV"),
	9: []byte("WXYZ"),
}

// Letters returns the letters for an ASCII digit, or nil if the digit has none.
func (m *Mapping) Letters(d byte) []byte {
	if d < '0' || d > '9' {
		return nil
	}
	return m[d-'0']
}

// Digit returns the digit a letter sits on. Lowercase letters are accepted.
func (m *Mapping) Digit(letter byte) (byte, bool) {
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	for d, letters := range m {
		for _, l := range letters {
			if l == letter {
				return byte('0' + d), true
			}
		}
	}
	return 0, false
}

// Has reports whether letter is one of the letters assigned to digit d.
func (m *Mapping) Has(d, letter byte) bool {
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	for _, l := range m.Letters(d) {
		if l == letter {
			return true
		}
	}
	return false
}

// ToDigits maps every letter of s back to its digit and keeps digits as they are.
// Any other character makes the conversion fail.
func (m *Mapping) ToDigits(s string) (string, bool) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			out[i] = c
			continue
		}
		d, ok := m.Digit(c)
		if !ok {
			return "", false
		}
		out[i] = d
	}
	return string(out), true
}

package jsstring

import (
	"unicode/utf16"

	"github.com/dlclark/regexp2"
)

// Search returns the UTF-16 index of the first match of the ECMAScript
// pattern in s, or -1.
func Search(s *String, pattern string) (int, error) {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return -1, err
	}
	return SearchRegexp(s, re)
}

// SearchRegexp is Search with a compiled expression.
func SearchRegexp(s *String, re *regexp2.Regexp) (int, error) {
	runes := utf16.Decode(s.Flatten())
	m, err := re.FindRunesMatch(runes)
	if err != nil || m == nil {
		return -1, err
	}
	units := 0
	for _, r := range runes[:m.Index] {
		units += utf16.RuneLen(r)
	}
	return units, nil
}

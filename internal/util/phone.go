package util

import (
	"regexp"
	"strings"
)

var phoneJunk = regexp.MustCompile(`[^\d+]+`)

// NormalizePhone turns configured numbers into E.164-like form:
// separators are dropped, an international "00" prefix becomes "+",
// and bare digit strings get a leading "+".
func NormalizePhone(raw string) string {
	s := phoneJunk.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return ""
	}

	// keep only a leading plus
	plus := strings.HasPrefix(s, "+")
	s = strings.ReplaceAll(s, "+", "")
	if s == "" {
		return ""
	}

	switch {
	case plus:
		s = "+" + s
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	default:
		s = "+" + s
	}

	return s
}

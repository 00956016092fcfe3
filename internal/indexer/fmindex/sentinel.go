package fmindex

import "unicode/utf8"

// Sentinel terminates every indexed text.
const Sentinel rune = 0

// Terminate converts text to runes, replaces embedded sentinels with
// utf8.RuneError so the terminator stays unique, and appends Sentinel.
// Invalid UTF-8 bytes also decode to utf8.RuneError.
func Terminate(text string) []rune {
	out := make([]rune, 0, utf8.RuneCountInString(text)+1)
	for _, r := range text {
		if r == Sentinel {
			r = utf8.RuneError
		}
		out = append(out, r)
	}
	return append(out, Sentinel)
}

// Strip removes the trailing sentinel from a terminated text.
func Strip(text []rune) string {
	if n := len(text); n > 0 && text[n-1] == Sentinel {
		text = text[:n-1]
	}
	return string(text)
}

package tuitest

import (
	"regexp"
	"strings"
)

var (
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?<>=]*[ -/]*[@-~]`)
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
	escPattern = regexp.MustCompile(`\x1b[()][0-9A-Za-z]|\x1b[=>78]`)
)

// Text is everything the program drew, with escape sequences, carriage
// returns and shift characters removed.
func (r *Recording) Text() string {
	if r == nil {
		return ""
	}
	return stripANSI(string(r.Raw))
}

// Contains reports whether text appeared anywhere on screen during the run.
func (r *Recording) Contains(text string) bool {
	return strings.Contains(r.Text(), text)
}

func stripANSI(s string) string {
	s = oscPattern.ReplaceAllString(s, "")
	s = csiPattern.ReplaceAllString(s, "")
	s = escPattern.ReplaceAllString(s, "")
	return strings.NewReplacer("\r", "", "\x0e", "", "\x0f", "").Replace(s)
}

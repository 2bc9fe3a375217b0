package arxiv

import (
	"regexp"
	"strings"
)

var (
	idRegexp   = regexp.MustCompile(`(?i)arxiv\.org/(?:abs|pdf)/([0-9a-z.\-]+(?:/[0-9]+)?(?:v[0-9]+)?)`)
	bareRegexp = regexp.MustCompile(`(?i)^(?:[a-z\-]+(?:\.[a-z]{2})?/[0-9]{7}|[0-9]{4}\.[0-9]{4,5})(?:v[0-9]+)?$`)
)

// ExtractIdentifier returns the arXiv identifier in input, which may be an
// abs or pdf URL, an "arXiv:" prefixed id or a bare id in either the old
// (hep-th/9711200) or new (2101.00001) scheme. It returns "" when input
// holds no identifier.
func ExtractIdentifier(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if len(input) > 4 && strings.EqualFold(input[len(input)-4:], ".pdf") {
		input = input[:len(input)-4]
	}
	if matches := idRegexp.FindStringSubmatch(input); len(matches) > 1 {
		return matches[1]
	}
	if len(input) >= len("arxiv:") && strings.EqualFold(input[:len("arxiv:")], "arxiv:") {
		input = strings.TrimSpace(input[len("arxiv:"):])
	}
	if bareRegexp.MatchString(input) {
		return input
	}
	return ""
}

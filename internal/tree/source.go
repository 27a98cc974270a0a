package tree

import (
	"fmt"
	"strings"
)

// Source holds one file's text split into lines, addressed 1-based.
type Source struct {
	name  string
	lines []string
}

// NewSource splits text into lines. Windows line endings are normalized so
// spans slice identically regardless of checkout settings.
func NewSource(name, text string) *Source {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return &Source{name: name, lines: lines}
}

// Name returns the file identity the source was created with.
func (s *Source) Name() string {
	return s.name
}

// LineCount returns the number of lines in the source.
func (s *Source) LineCount() int {
	return len(s.lines)
}

// Span returns the raw lines for the inclusive 1-based range [start, end].
// A reversed span or one extending past the end of the file is an error,
// never clamped: annotating truncated or garbled ranges is worse than
// failing fast.
func (s *Source) Span(start, end int) ([]string, error) {
	if start < 1 || end < start {
		return nil, fmt.Errorf("invalid span %d-%d", start, end)
	}
	if end > len(s.lines) {
		return nil, fmt.Errorf("span %d-%d exceeds file length %d", start, end, len(s.lines))
	}
	return s.lines[start-1 : end], nil
}

// NumberedSpan returns the span lines with their 1-based line numbers
// prefixed, the form statement payloads and raw code views carry.
func (s *Source) NumberedSpan(start, end int) ([]string, error) {
	raw, err := s.Span(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = fmt.Sprintf("%d: %s", start+i, l)
	}
	return out, nil
}

// EstimateTokens is the cost metric used by batch planning: a chars/4
// heuristic. Any monotonic function works as long as it is consistent
// within one planning run.
func EstimateTokens(text string) int {
	n := (len(text) + 3) / 4
	if n < 1 {
		return 1
	}
	return n
}

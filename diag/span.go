package diag

import (
	"fmt"
	"strings"
)

// Span is a half-open byte range [Start, End) into a source text. A zero
// Span is an empty range at the start of the text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Label ties a span of source text to a short message describing it.
type Label struct {
	Span Span
	Text string
}

// LineSpan returns the span of the given 1-based line within source,
// excluding the line terminator. Slicing source with the result yields
// exactly the line's text.
//
// LineSpan panics when line does not exist in source: callers pair a line
// number with the text it was derived from, and a mismatch means the
// diagnostic would point at the wrong place.
func LineSpan(source string, line int) Span {
	if line < 1 {
		panic(fmt.Sprintf("diag: line %d is not a valid 1-based line number", line))
	}
	start := 0
	for n := 1; n < line; n++ {
		idx := strings.IndexByte(source[start:], '\n')
		if idx < 0 {
			panic(fmt.Sprintf("diag: line %d is beyond the end of the source text", line))
		}
		start += idx + 1
	}
	if start >= len(source) {
		panic(fmt.Sprintf("diag: line %d is beyond the end of the source text", line))
	}
	end := len(source)
	if idx := strings.IndexByte(source[start:], '\n'); idx >= 0 {
		end = start + idx
	}
	if end > start && source[end-1] == '\r' {
		end--
	}
	return Span{Start: start, End: end}
}

package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// labeledError is a test double carrying the full diagnostic surface.
type labeledError struct {
	msg    string
	code   string
	hint   string
	source string
	labels []Label
}

func (e *labeledError) Error() string          { return e.msg }
func (e *labeledError) DiagnosticCode() string { return e.code }
func (e *labeledError) Hint() string           { return e.hint }
func (e *labeledError) Source() string         { return e.source }
func (e *labeledError) Labels() []Label        { return e.labels }

func TestRenderFullDiagnostic(t *testing.T) {
	source := "alpha\nbravo one two\ncharlie\n"
	err := &labeledError{
		msg:    "malformed input",
		code:   "espflash.test.malformed",
		hint:   "Fix the second line",
		source: source,
		labels: []Label{{Span: LineSpan(source, 2), Text: "this line is wrong"}},
	}

	var buf strings.Builder
	NewRenderer(&buf, WithColor(false)).Render(err)
	out := buf.String()

	for _, want := range []string{
		"error: malformed input",
		"[espflash.test.malformed]",
		" 2 | bravo one two",
		"^^^^^^^^^^^^^ this line is wrong",
		"help: Fix the second line",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderWalksWrappedChain(t *testing.T) {
	inner := &labeledError{
		msg:  "bad record",
		code: "espflash.test.record",
		hint: "Remove the extra field",
	}
	err := fmt.Errorf("while parsing table: %w", inner)

	var buf strings.Builder
	NewRenderer(&buf, WithColor(false)).Render(err)
	out := buf.String()

	if !strings.Contains(out, "error: while parsing table: bad record") {
		t.Errorf("summary should use the outer message:\n%s", out)
	}
	if !strings.Contains(out, "[espflash.test.record]") {
		t.Errorf("code should be found through the wrapper:\n%s", out)
	}
	if !strings.Contains(out, "help: Remove the extra field") {
		t.Errorf("hint should be found through the wrapper:\n%s", out)
	}
}

func TestRenderPlainError(t *testing.T) {
	var buf strings.Builder
	NewRenderer(&buf, WithColor(false)).Render(errors.New("something broke"))
	out := buf.String()

	if got, want := out, "error: something broke\n"; got != want {
		t.Errorf("plain error rendered as %q, want %q", got, want)
	}
}

func TestRenderNil(t *testing.T) {
	var buf strings.Builder
	NewRenderer(&buf, WithColor(false)).Render(nil)
	if buf.Len() != 0 {
		t.Errorf("rendering nil wrote %q", buf.String())
	}
}

func TestRenderMultipleLabelsSorted(t *testing.T) {
	source := "one\ntwo\nthree\nfour\n"
	err := &labeledError{
		msg:    "duplicate entries",
		source: source,
		labels: []Label{
			{Span: LineSpan(source, 4), Text: "second occurrence"},
			{Span: LineSpan(source, 2), Text: "first occurrence"},
		},
	}

	var buf strings.Builder
	NewRenderer(&buf, WithColor(false)).Render(err)
	out := buf.String()

	first := strings.Index(out, "first occurrence")
	second := strings.Index(out, "second occurrence")
	if first == -1 || second == -1 {
		t.Fatalf("labels missing from output:\n%s", out)
	}
	if first > second {
		t.Errorf("labels not ordered by source position:\n%s", out)
	}
}

func TestCodeHintHelpers(t *testing.T) {
	err := fmt.Errorf("outer: %w", &labeledError{msg: "inner", code: "a.b.c", hint: "do the thing"})

	if got := Code(err); got != "a.b.c" {
		t.Errorf("Code() = %q, want %q", got, "a.b.c")
	}
	if got := Hint(err); got != "do the thing" {
		t.Errorf("Hint() = %q, want %q", got, "do the thing")
	}
	if got := Code(errors.New("plain")); got != "" {
		t.Errorf("Code(plain) = %q, want empty", got)
	}
	if got := Hint(errors.New("plain")); got != "" {
		t.Errorf("Hint(plain) = %q, want empty", got)
	}
	if _, ok := SourceLabels(errors.New("plain")); ok {
		t.Error("SourceLabels(plain) reported a snippet")
	}
}

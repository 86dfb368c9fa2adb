package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Renderer pretty-prints errors together with any diagnostic metadata found
// along their chains.
//
// Example output:
//
//	error: malformed partition table [espflash.partition_table.duplicate]
//
//	   4 | factory,  app,  factory, 0x10000,  1M
//	     | ^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^ this partition
//	   9 | factory,  app,  ota_0,   0x110000, 1M
//	     | ^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^ has the same name as this partition
//
//	help: Partition names must be unique
type Renderer struct {
	w      io.Writer
	styles styles
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithColor forces color output on or off, overriding terminal detection.
func WithColor(enabled bool) RendererOption {
	return func(r *Renderer) {
		if enabled {
			r.styles = colorStyles()
		} else {
			r.styles = styles{}
		}
	}
}

// NewRenderer returns a Renderer writing to w. Color is enabled when w is a
// terminal and the NO_COLOR convention does not forbid it.
func NewRenderer(w io.Writer, opts ...RendererOption) *Renderer {
	r := &Renderer{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" {
		r.styles = colorStyles()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes a full diagnostic report for err: the summary line, the
// diagnostic code when one exists, an annotated source snippet when the
// chain can point into source text, and finally the hint.
func (r *Renderer) Render(err error) {
	if err == nil {
		return
	}
	summary := r.styles.summary.Render("error: " + err.Error())
	if code := Code(err); code != "" {
		summary += " " + r.styles.code.Render("["+code+"]")
	}
	fmt.Fprintln(r.w, summary)

	if src, ok := SourceLabels(err); ok {
		r.renderSnippet(src.Source(), src.Labels())
	}

	if hint := Hint(err); hint != "" {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, r.styles.hint.Render("help:"), hint)
	}
}

// renderSnippet prints one gutter-annotated line of source per label.
func (r *Renderer) renderSnippet(source string, labels []Label) {
	if len(labels) == 0 || source == "" {
		return
	}
	sorted := make([]Label, len(labels))
	copy(sorted, labels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	width := 0
	for _, l := range sorted {
		if n := digits(lineOf(source, l.Span.Start)); n > width {
			width = n
		}
	}

	fmt.Fprintln(r.w)
	for _, l := range sorted {
		line := lineOf(source, l.Span.Start)
		span := LineSpan(source, line)
		text := source[span.Start:span.End]

		indent := l.Span.Start - span.Start
		carets := l.Span.End - l.Span.Start
		if l.Span.End > span.End {
			carets = span.End - l.Span.Start
		}
		if carets < 1 {
			carets = 1
		}

		gutter := fmt.Sprintf(" %*d | ", width, line)
		fmt.Fprintf(r.w, "%s%s\n", r.styles.gutter.Render(gutter), text)
		fmt.Fprintf(r.w, "%s%s%s %s\n",
			r.styles.gutter.Render(fmt.Sprintf(" %*s | ", width, "")),
			strings.Repeat(" ", indent),
			r.styles.caret.Render(strings.Repeat("^", carets)),
			l.Text)
	}
}

// lineOf returns the 1-based line number containing the byte offset. An
// offset at or past the end of the text maps to the last line.
func lineOf(source string, offset int) int {
	if offset >= len(source) {
		offset = len(source)
		if offset > 0 && source[offset-1] == '\n' {
			offset--
		}
	}
	return 1 + strings.Count(source[:offset], "\n")
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}

// styles holds the lipgloss styles for each part of the report. The zero
// value renders plain text.
type styles struct {
	summary lipgloss.Style
	code    lipgloss.Style
	gutter  lipgloss.Style
	caret   lipgloss.Style
	hint    lipgloss.Style
}

func colorStyles() styles {
	return styles{
		summary: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		code:    lipgloss.NewStyle().Faint(true),
		gutter:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		caret:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
	}
}

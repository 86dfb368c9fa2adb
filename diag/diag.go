package diag

import "errors"

// Coder is implemented by errors that carry a stable diagnostic code, a
// dot-separated identifier such as "espflash.connection_failed". Codes are
// meant for tooling and search, not for display logic.
type Coder interface {
	error

	// DiagnosticCode returns the error's stable identifier.
	DiagnosticCode() string
}

// Hinter is implemented by errors that can suggest what the user should do
// about the failure.
type Hinter interface {
	error

	// Hint returns a short, actionable suggestion. An empty string means
	// the error has no hint after all.
	Hint() string
}

// SourceLabeler is implemented by errors that can point into the source
// text they were raised from. Labels reference byte offsets into the string
// returned by Source.
type SourceLabeler interface {
	error

	// Source returns the full text the labels index into.
	Source() string

	// Labels returns the labeled spans, in the order they should be shown.
	Labels() []Label
}

// Code returns the first diagnostic code found along err's chain, or the
// empty string when no error in the chain carries one.
func Code(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.DiagnosticCode()
	}
	return ""
}

// Hint returns the first hint found along err's chain, or the empty string.
func Hint(err error) string {
	var h Hinter
	if errors.As(err, &h) {
		return h.Hint()
	}
	return ""
}

// SourceLabels returns the first labeled source snippet found along err's
// chain. The boolean reports whether one was found.
func SourceLabels(err error) (SourceLabeler, bool) {
	var s SourceLabeler
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}

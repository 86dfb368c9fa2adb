// Package diag renders rich diagnostics for errors produced by this module.
//
// Errors stay plain Go errors. Types that have more to say implement one or
// more of the optional interfaces in this package: Coder for a stable,
// dot-separated diagnostic code, Hinter for a human suggestion, and
// SourceLabeler for a snippet of the offending source text with labeled
// spans. The Renderer walks an error chain with errors.As, collects whatever
// metadata it finds, and prints a summary, the code, an annotated source
// snippet, and the hint.
//
// Nothing in this package is specific to flashing; it only knows about byte
// offsets into source text.
package diag

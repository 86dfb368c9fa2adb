package partition

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-espflash/diag"
)

// docsHint points at the upstream description of the partition table
// format. Every table diagnostic that offers a hint ends with it.
const docsHint = "See the espressif documentation for information on the partition table format:\n\n" +
	"https://docs.espressif.com/projects/esp-idf/en/latest/esp32/api-guides/partition-tables.html#creating-custom-tables"

// TableError is implemented by every partition table diagnostic. The
// interface is sealed; the set of table failures is fixed, so callers
// can switch over the concrete types exhaustively.
type TableError interface {
	error

	tableError()
}

// Sealed union markers.
func (*CSVError) tableError()                   {}
func (*OverlappingPartitionsError) tableError() {}
func (*DuplicatePartitionsError) tableError()   {}
func (*InvalidSubTypeError) tableError()        {}
func (*UnalignedPartitionError) tableError()    {}

// CSVError reports a row that failed to decode. It owns the full source
// text and points at the offending line when the underlying failure
// carries one.
type CSVError struct {
	// Err is the decode failure the diagnostic was built from.
	Err error

	source string
	span   diag.Span
	label  string
	help   string
}

// NewCSVError builds the diagnostic for a row decoding failure. The
// label put on the offending line is derived from the failure itself:
// the observed and expected counts for a field count mismatch, the
// field's own message otherwise.
//
// When the label text is exactly ParseSubType's mismatch message it is
// replaced with a clearer one and the help gains the list of recognized
// subtype names. The comparison is tied to that wording; any other text
// passes through untouched, so an unmatched failure renders with its
// original, less specific label.
func NewCSVError(err error, source string) *CSVError {
	e := &CSVError{Err: err, source: source}

	line := 0
	var (
		countErr *FieldCountError
		fieldErr *FieldError
	)
	switch {
	case errors.As(err, &countErr):
		line = countErr.Line
		e.label = fmt.Sprintf("record has %d fields, expected %d", countErr.Got, countErr.Expected)
	case errors.As(err, &fieldErr):
		line = fieldErr.Line
		e.label = fieldErr.Err.Error()
	default:
		e.label = err.Error()
	}
	if line > 0 {
		e.span = diag.LineSpan(source, line)
	}

	if e.label == subTypeMismatch {
		e.label = "unknown subtype"
		e.help = fmt.Sprintf("the following subtypes are supported:\n    %s for data partitions\n    %s for app partitions\n\n",
			SubTypeHint(TypeData), SubTypeHint(TypeApp))
	}

	return e
}

func (e *CSVError) Error() string {
	return "malformed partition table"
}

func (e *CSVError) Unwrap() error {
	return e.Err
}

// DiagnosticCode identifies the failure for tooling.
func (e *CSVError) DiagnosticCode() string {
	return "espflash.partition_table.malformed"
}

// Hint points at the partition table documentation, preceded by the
// recognized subtype names when the row failed on its subtype column.
func (e *CSVError) Hint() string {
	return e.help + docsHint
}

// Source returns the CSV text the error points into.
func (e *CSVError) Source() string {
	return e.source
}

// Labels marks the offending line.
func (e *CSVError) Labels() []diag.Label {
	return []diag.Label{{Span: e.span, Text: e.label}}
}

// OverlappingPartitionsError reports two partitions whose flash ranges
// intersect.
type OverlappingPartitionsError struct {
	source string
	first  diag.Span
	second diag.Span
}

// NewOverlappingPartitionsError builds the diagnostic for the
// partitions declared on the two given lines, in source order.
func NewOverlappingPartitionsError(source string, firstLine, secondLine int) *OverlappingPartitionsError {
	return &OverlappingPartitionsError{
		source: source,
		first:  diag.LineSpan(source, firstLine),
		second: diag.LineSpan(source, secondLine),
	}
}

func (e *OverlappingPartitionsError) Error() string {
	return "overlapping partitions"
}

// DiagnosticCode identifies the failure for tooling.
func (e *OverlappingPartitionsError) DiagnosticCode() string {
	return "espflash.partition_table.overlapping"
}

// Source returns the CSV text the error points into.
func (e *OverlappingPartitionsError) Source() string {
	return e.source
}

// Labels marks both partitions.
func (e *OverlappingPartitionsError) Labels() []diag.Label {
	return []diag.Label{
		{Span: e.first, Text: "this partition"},
		{Span: e.second, Text: "overlaps with this partition"},
	}
}

// DuplicatePartitionsError reports two partitions that share a value
// required to be unique, such as a name or an offset.
type DuplicatePartitionsError struct {
	// Field names the column that collided.
	Field string

	source string
	first  diag.Span
	second diag.Span
}

// NewDuplicatePartitionsError builds the diagnostic for the partitions
// declared on the two given lines, in source order.
func NewDuplicatePartitionsError(source string, firstLine, secondLine int, field string) *DuplicatePartitionsError {
	return &DuplicatePartitionsError{
		Field:  field,
		source: source,
		first:  diag.LineSpan(source, firstLine),
		second: diag.LineSpan(source, secondLine),
	}
}

func (e *DuplicatePartitionsError) Error() string {
	return "duplicate partitions"
}

// DiagnosticCode identifies the failure for tooling.
func (e *DuplicatePartitionsError) DiagnosticCode() string {
	return "espflash.partition_table.duplicate"
}

// Source returns the CSV text the error points into.
func (e *DuplicatePartitionsError) Source() string {
	return e.source
}

// Labels marks both partitions and names the colliding field on the
// second one.
func (e *DuplicatePartitionsError) Labels() []diag.Label {
	return []diag.Label{
		{Span: e.first, Text: "this partition"},
		{Span: e.second, Text: fmt.Sprintf("has the same %s as this partition", e.Field)},
	}
}

// InvalidSubTypeError reports a partition whose subtype belongs to a
// different partition type.
type InvalidSubTypeError struct {
	// Type is the partition's declared type.
	Type Type
	// SubType is the rejected subtype.
	SubType SubType

	source string
	span   diag.Span
}

// NewInvalidSubTypeError builds the diagnostic for the partition
// declared on the given line.
func NewInvalidSubTypeError(source string, line int, typ Type, subType SubType) *InvalidSubTypeError {
	return &InvalidSubTypeError{
		Type:    typ,
		SubType: subType,
		source:  source,
		span:    diag.LineSpan(source, line),
	}
}

func (e *InvalidSubTypeError) Error() string {
	return "invalid subtype for partition type"
}

// DiagnosticCode identifies the failure for tooling.
func (e *InvalidSubTypeError) DiagnosticCode() string {
	return "espflash.partition_table.invalid_subtype"
}

// Hint enumerates the subtypes valid for the partition's type.
func (e *InvalidSubTypeError) Hint() string {
	return fmt.Sprintf("'%s' supports the following subtypes: %s", e.Type, SubTypeHint(e.Type))
}

// Source returns the CSV text the error points into.
func (e *InvalidSubTypeError) Source() string {
	return e.source
}

// Labels marks the offending partition.
func (e *InvalidSubTypeError) Labels() []diag.Label {
	return []diag.Label{
		{Span: e.span, Text: fmt.Sprintf("'%s' is not a valid subtype for '%s'", e.SubType, e.Type)},
	}
}

// UnalignedPartitionError reports an app partition whose offset is not
// aligned to a 64 KB boundary.
type UnalignedPartitionError struct {
	source string
	span   diag.Span
}

// NewUnalignedPartitionError builds the diagnostic for the partition
// declared on the given line.
func NewUnalignedPartitionError(source string, line int) *UnalignedPartitionError {
	return &UnalignedPartitionError{
		source: source,
		span:   diag.LineSpan(source, line),
	}
}

func (e *UnalignedPartitionError) Error() string {
	return "unaligned partition"
}

// DiagnosticCode identifies the failure for tooling.
func (e *UnalignedPartitionError) DiagnosticCode() string {
	return "espflash.partition_table.unaligned"
}

// Source returns the CSV text the error points into.
func (e *UnalignedPartitionError) Source() string {
	return e.source
}

// Labels marks the offending partition.
func (e *UnalignedPartitionError) Labels() []diag.Label {
	return []diag.Label{
		{Span: e.span, Text: fmt.Sprintf("app partition is not aligned to 64k (%#x)", appAlignment)},
	}
}

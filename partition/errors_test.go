package partition

import (
	"errors"
	"strings"
	"testing"

	"github.com/moffa90/go-espflash/diag"
)

// The table failure set is closed, and each member must be renderable.
var (
	_ TableError = (*CSVError)(nil)
	_ TableError = (*OverlappingPartitionsError)(nil)
	_ TableError = (*DuplicatePartitionsError)(nil)
	_ TableError = (*InvalidSubTypeError)(nil)
	_ TableError = (*UnalignedPartitionError)(nil)

	_ diag.Coder         = (*CSVError)(nil)
	_ diag.Coder         = (*OverlappingPartitionsError)(nil)
	_ diag.Coder         = (*DuplicatePartitionsError)(nil)
	_ diag.Coder         = (*InvalidSubTypeError)(nil)
	_ diag.Coder         = (*UnalignedPartitionError)(nil)
	_ diag.Hinter        = (*CSVError)(nil)
	_ diag.Hinter        = (*InvalidSubTypeError)(nil)
	_ diag.SourceLabeler = (*CSVError)(nil)
	_ diag.SourceLabeler = (*OverlappingPartitionsError)(nil)
	_ diag.SourceLabeler = (*DuplicatePartitionsError)(nil)
	_ diag.SourceLabeler = (*InvalidSubTypeError)(nil)
	_ diag.SourceLabeler = (*UnalignedPartitionError)(nil)
)

func TestDiagnosticCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{
			name: "csv",
			err:  NewCSVError(errors.New("x"), "line\n"),
			code: "espflash.partition_table.malformed",
		},
		{
			name: "overlapping",
			err:  NewOverlappingPartitionsError("a\nb\n", 1, 2),
			code: "espflash.partition_table.overlapping",
		},
		{
			name: "duplicate",
			err:  NewDuplicatePartitionsError("a\nb\n", 1, 2, "name"),
			code: "espflash.partition_table.duplicate",
		},
		{
			name: "invalid subtype",
			err:  NewInvalidSubTypeError("a\n", 1, TypeApp, SubTypeSPIFFS),
			code: "espflash.partition_table.invalid_subtype",
		},
		{
			name: "unaligned",
			err:  NewUnalignedPartitionError("a\n", 1),
			code: "espflash.partition_table.unaligned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := diag.Code(tt.err); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

// A failure with no position keeps an empty span at the start of the
// source but still carries its message as the label.
func TestNewCSVErrorNoPosition(t *testing.T) {
	cause := errors.New("something else went wrong")
	e := NewCSVError(cause, "nvs, data, nvs, 0x9000, 0x6000,\n")

	if !errors.Is(e, cause) {
		t.Error("cause is not reachable through Unwrap")
	}

	labels := e.Labels()
	if len(labels) != 1 {
		t.Fatalf("label count = %d, want 1", len(labels))
	}
	if labels[0].Span != (diag.Span{}) {
		t.Errorf("span = %+v, want zero", labels[0].Span)
	}
	if labels[0].Text != "something else went wrong" {
		t.Errorf("label = %q", labels[0].Text)
	}
}

// Only the exact mismatch wording triggers the upgraded hint; close
// variations keep the original message and shorter help.
func TestNewCSVErrorHeuristic(t *testing.T) {
	const source = "storage, data, blah, 0x9000, 0x1000,\n"

	tests := []struct {
		name      string
		cause     error
		label     string
		extraHelp bool
	}{
		{
			name:      "exact match",
			cause:     &FieldError{Line: 1, Field: "subtype", Err: errors.New(subTypeMismatch)},
			label:     "unknown subtype",
			extraHelp: true,
		},
		{
			name:  "near miss",
			cause: &FieldError{Line: 1, Field: "subtype", Err: errors.New("value did not match any recognized subtypes")},
			label: "value did not match any recognized subtypes",
		},
		{
			name:  "unrelated",
			cause: &FieldError{Line: 1, Field: "size", Err: errors.New("partition size is missing")},
			label: "partition size is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewCSVError(tt.cause, source)

			if got := e.Labels()[0].Text; got != tt.label {
				t.Errorf("label = %q, want %q", got, tt.label)
			}
			hasHelp := strings.Contains(e.Hint(), "the following subtypes are supported")
			if hasHelp != tt.extraHelp {
				t.Errorf("subtype help present = %t, want %t", hasHelp, tt.extraHelp)
			}
		})
	}
}

func TestTableErrorSummaries(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{name: "csv", err: NewCSVError(errors.New("x"), "a\n"), msg: "malformed partition table"},
		{name: "overlapping", err: NewOverlappingPartitionsError("a\nb\n", 1, 2), msg: "overlapping partitions"},
		{name: "duplicate", err: NewDuplicatePartitionsError("a\nb\n", 1, 2, "name"), msg: "duplicate partitions"},
		{name: "invalid subtype", err: NewInvalidSubTypeError("a\n", 1, TypeApp, SubTypeFAT), msg: "invalid subtype for partition type"},
		{name: "unaligned", err: NewUnalignedPartitionError("a\n", 1), msg: "unaligned partition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.msg {
				t.Errorf("Error() = %q, want %q", got, tt.msg)
			}
		})
	}
}

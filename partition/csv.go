package partition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// minRecordFields is a row without the optional flags column.
	minRecordFields = 5
	// maxRecordFields is a row with the flags column.
	maxRecordFields = 6
	// maxNameLen leaves room for the terminating NUL in the 16-byte
	// name field of a binary table entry.
	maxNameLen = 15
)

var (
	errNameMissing = errors.New("partition name is empty")
	errNameTooLong = errors.New("partition name is longer than 15 characters")
	errSizeMissing = errors.New("partition size is missing")
)

// record is one non-empty, non-comment CSV row with its 1-based line
// number in the original source text.
type record struct {
	line   int
	fields []string
}

// readRecords splits the CSV source into records. Blank lines and lines
// whose first non-space character is '#' are skipped, field whitespace
// is trimmed.
func readRecords(source string) []record {
	var records []record
	for i, text := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Split(trimmed, ",")
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		records = append(records, record{line: i + 1, fields: fields})
	}
	return records
}

// FieldCountError reports a row with the wrong number of fields.
type FieldCountError struct {
	Line     int
	Got      int
	Expected int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("line %d: record has %d fields, expected %d", e.Line, e.Got, e.Expected)
}

// FieldError reports a row field that failed to decode.
type FieldError struct {
	Line  int
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// decodeRecord decodes one CSV row into a partition. The second return
// reports whether the offset column was present; rows may leave it
// empty to have an offset assigned from the previous partition's end.
func decodeRecord(rec record) (Partition, bool, error) {
	if len(rec.fields) < minRecordFields || len(rec.fields) > maxRecordFields {
		expected := minRecordFields
		if len(rec.fields) > maxRecordFields {
			expected = maxRecordFields
		}
		return Partition{}, false, &FieldCountError{Line: rec.line, Got: len(rec.fields), Expected: expected}
	}

	p := Partition{line: rec.line}

	p.Name = rec.fields[0]
	switch {
	case p.Name == "":
		return Partition{}, false, &FieldError{Line: rec.line, Field: "name", Err: errNameMissing}
	case len(p.Name) > maxNameLen:
		return Partition{}, false, &FieldError{Line: rec.line, Field: "name", Err: errNameTooLong}
	}

	typ, err := ParseType(rec.fields[1])
	if err != nil {
		return Partition{}, false, &FieldError{Line: rec.line, Field: "type", Err: err}
	}
	p.Type = typ

	subType, err := ParseSubType(rec.fields[2])
	if err != nil {
		return Partition{}, false, &FieldError{Line: rec.line, Field: "subtype", Err: err}
	}
	p.SubType = subType

	hasOffset := rec.fields[3] != ""
	if hasOffset {
		offset, err := parseSize(rec.fields[3])
		if err != nil {
			return Partition{}, false, &FieldError{Line: rec.line, Field: "offset", Err: err}
		}
		p.Offset = offset
	}

	if rec.fields[4] == "" {
		return Partition{}, false, &FieldError{Line: rec.line, Field: "size", Err: errSizeMissing}
	}
	size, err := parseSize(rec.fields[4])
	if err != nil {
		return Partition{}, false, &FieldError{Line: rec.line, Field: "size", Err: err}
	}
	p.Size = size

	if len(rec.fields) == maxRecordFields && rec.fields[5] != "" {
		if rec.fields[5] != "encrypted" {
			return Partition{}, false, &FieldError{Line: rec.line, Field: "flags", Err: fmt.Errorf("unknown flag %q", rec.fields[5])}
		}
		p.Encrypted = true
	}

	return p, hasOffset, nil
}

// parseSize parses the offset and size columns. Values may be decimal,
// hex with an 0x prefix, or carry a k/K or m/M suffix multiplying by
// 1024 or 1024*1024.
func parseSize(s string) (uint32, error) {
	multiplier := uint64(1)
	num := s
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		multiplier = 1024
		num = s[:len(s)-1]
	case strings.HasSuffix(s, "m"), strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		num = s[:len(s)-1]
	}
	value, err := strconv.ParseUint(num, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if value*multiplier > math.MaxUint32 {
		return 0, fmt.Errorf("size %q does not fit in 32 bits", s)
	}
	return uint32(value * multiplier), nil
}

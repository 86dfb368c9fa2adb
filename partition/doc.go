// Package partition reads, validates and serializes esp-idf partition
// tables.
//
// Tables arrive as CSV in the format the esp-idf tooling uses: one
// partition per row with name, type, subtype, offset, size and optional
// flags columns, '#' comments and blank lines ignored. ParseCSV decodes
// and validates a table in one step; every failure is a TableError that
// can point back into the CSV text with byte-accurate spans for the
// diag package to render.
//
// ToBinary produces the 32-byte-entry binary layout the bootloader reads,
// including the trailing MD5 row.
package partition

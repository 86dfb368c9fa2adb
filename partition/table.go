package partition

const (
	// firstPartitionOffset is where the first partition lands when the
	// table leaves its offset column empty. It sits directly after the
	// partition table itself.
	firstPartitionOffset = 0x9000
	// appAlignment is the offset alignment required for app partitions.
	appAlignment = 0x10000
	// dataAlignment is the offset alignment required for data partitions.
	dataAlignment = 0x1000
)

// Partition is one validated row of a partition table.
type Partition struct {
	Name      string
	Type      Type
	SubType   SubType
	Offset    uint32
	Size      uint32
	Encrypted bool

	line int
}

// End returns the first flash offset past the partition.
func (p *Partition) End() uint32 {
	return p.Offset + p.Size
}

// Line returns the 1-based CSV line the partition was declared on.
func (p *Partition) Line() int {
	return p.line
}

// Overlaps reports whether the two partitions' flash ranges intersect.
func (p *Partition) Overlaps(other *Partition) bool {
	return p.Offset < other.End() && other.Offset < p.End()
}

// Table is a validated partition table.
type Table struct {
	partitions []Partition
}

// Partitions returns the table's partitions in declaration order.
func (t *Table) Partitions() []Partition {
	return t.partitions
}

// App returns the first app partition, or nil when the table has none.
func (t *Table) App() *Partition {
	for i := range t.partitions {
		if t.partitions[i].Type == TypeApp {
			return &t.partitions[i]
		}
	}
	return nil
}

// Find returns the partition with the given name, or nil.
func (t *Table) Find(name string) *Partition {
	for i := range t.partitions {
		if t.partitions[i].Name == name {
			return &t.partitions[i]
		}
	}
	return nil
}

// ParseCSV decodes and validates a partition table from CSV text. Rows
// with an empty offset column are placed after the previous partition,
// aligned for their type; the first such row lands at 0x9000. Every
// failure is a TableError carrying the source text and labeled spans.
func ParseCSV(source string) (*Table, error) {
	records := readRecords(source)

	partitions := make([]Partition, 0, len(records))
	next := uint32(firstPartitionOffset)
	for _, rec := range records {
		p, hasOffset, err := decodeRecord(rec)
		if err != nil {
			return nil, NewCSVError(err, source)
		}
		if !hasOffset {
			p.Offset = alignUp(next, p.Type.alignment())
		}
		next = p.End()
		partitions = append(partitions, p)
	}

	t := &Table{partitions: partitions}
	if err := t.validate(source); err != nil {
		return nil, err
	}
	return t, nil
}

// validate checks each row on its own and then every pair. The first
// failure wins, so a row never produces more than one diagnostic.
func (t *Table) validate(source string) error {
	for i := range t.partitions {
		p := &t.partitions[i]
		if p.SubType.Type() != p.Type {
			return NewInvalidSubTypeError(source, p.line, p.Type, p.SubType)
		}
		if p.Type == TypeApp && p.Offset%appAlignment != 0 {
			return NewUnalignedPartitionError(source, p.line)
		}
	}
	for i := range t.partitions {
		for j := i + 1; j < len(t.partitions); j++ {
			a, b := &t.partitions[i], &t.partitions[j]
			switch {
			case a.Name == b.Name:
				return NewDuplicatePartitionsError(source, a.line, b.line, "name")
			case a.Offset == b.Offset:
				return NewDuplicatePartitionsError(source, a.line, b.line, "offset")
			case a.Overlaps(b):
				return NewOverlappingPartitionsError(source, a.line, b.line)
			}
		}
	}
	return nil
}

func alignUp(v, alignment uint32) uint32 {
	return (v + alignment - 1) &^ (alignment - 1)
}

package customer

// Directory exposes read-only identity and credit lookups keyed by the
// applicant's contact identifier.
type Directory interface {
	Lookup(contact string) (Record, bool)
}

// MemoryDirectory implements Directory with an in-memory map, suitable for
// the mock bureau.
type MemoryDirectory struct {
	records map[string]Record
}

// NewMemoryDirectory returns a MemoryDirectory preloaded with the supplied
// customer records.
func NewMemoryDirectory(records map[string]Record) *MemoryDirectory {
	items := make(map[string]Record, len(records))
	for k, v := range records {
		items[k] = v
	}
	return &MemoryDirectory{records: items}
}

// Lookup finds the record for a contact identifier.
func (d *MemoryDirectory) Lookup(contact string) (Record, bool) {
	rec, ok := d.records[contact]
	return rec, ok
}

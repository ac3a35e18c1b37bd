// Package registry loads the building registry (EHR) export into an
// in-memory index keyed by registry code.
package registry

// Entry holds the registry attributes carried over to the output features.
type Entry struct {
	Name    string
	Address string
	Year    int
}

// Index maps registry codes to entries. It is built once by Load and only
// read afterwards.
type Index struct {
	entries map[int64]Entry
}

// NewIndex wraps an existing map. The map must not be modified afterwards.
func NewIndex(entries map[int64]Entry) *Index {
	if entries == nil {
		entries = make(map[int64]Entry)
	}
	return &Index{entries: entries}
}

// Lookup returns the entry for code.
func (idx *Index) Lookup(code int64) (Entry, bool) {
	e, ok := idx.entries[code]
	return e, ok
}

// Len returns the number of distinct codes in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Stats summarises a load.
type Stats struct {
	Rows        int // data rows read, header excluded
	Kept        int // rows inserted into the index, duplicates included
	DroppedCode int // empty, non-building or non-numeric codes
	DroppedYear int // missing or unparseable first-use year
	Duplicates  int // rows that replaced an earlier row with the same code
}

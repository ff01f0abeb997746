package core

// ChunkTable is the ordered collection of chunks ingested for one checkpoint
// namespace. Rows keep insertion order and every row is indexed by the
// digest of its identity key, so membership checks do not rescan the table.
//
// A nil *ChunkTable behaves as an empty table for read operations.
// ChunkTable is not safe for concurrent mutation.
type ChunkTable struct {
	rows  []Chunk
	index map[uint64][]int
	maxID int64
}

// NewChunkTable builds a table from rows in the given order.
func NewChunkTable(rows ...Chunk) *ChunkTable {
	t := &ChunkTable{
		rows:  make([]Chunk, 0, len(rows)),
		index: make(map[uint64][]int, len(rows)),
		maxID: -1,
	}
	t.Append(rows...)
	return t
}

// Len returns the number of rows.
func (t *ChunkTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// IsEmpty reports whether the table has no rows.
func (t *ChunkTable) IsEmpty() bool {
	return t.Len() == 0
}

// Rows returns a copy of the rows in insertion order.
func (t *ChunkTable) Rows() []Chunk {
	if t == nil {
		return nil
	}
	out := make([]Chunk, len(t.rows))
	copy(out, t.rows)
	return out
}

// Slice returns a copy of rows[start:end], clamped to the table bounds.
func (t *ChunkTable) Slice(start, end int) []Chunk {
	n := t.Len()
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return nil
	}
	out := make([]Chunk, end-start)
	copy(out, t.rows[start:end])
	return out
}

// Contains reports whether a row with the given identity key exists.
func (t *ChunkTable) Contains(key IdentityKey) bool {
	if t == nil {
		return false
	}
	for _, i := range t.index[key.Digest()] {
		if t.rows[i].Key() == key {
			return true
		}
	}
	return false
}

// MaxID returns the largest id held by the table, or -1 when empty.
func (t *ChunkTable) MaxID() int64 {
	if t == nil || len(t.rows) == 0 {
		return -1
	}
	return t.maxID
}

// IDBase returns the value new candidate ids are offset from. It is the
// table size, raised to the largest id in use so ids stay unique after
// rejected candidates leave gaps.
func (t *ChunkTable) IDBase() int64 {
	base := int64(t.Len())
	if m := t.MaxID(); m > base {
		base = m
	}
	return base
}

// Append adds rows to the end of the table without any duplicate check.
func (t *ChunkTable) Append(rows ...Chunk) {
	if t.index == nil {
		t.index = make(map[uint64][]int, len(rows))
		t.maxID = -1
	}
	for _, row := range rows {
		d := row.Key().Digest()
		t.index[d] = append(t.index[d], len(t.rows))
		t.rows = append(t.rows, row)
		if row.ID > t.maxID {
			t.maxID = row.ID
		}
	}
}

// Clone returns an independent copy of the table.
func (t *ChunkTable) Clone() *ChunkTable {
	if t == nil {
		return NewChunkTable()
	}
	return NewChunkTable(t.rows...)
}

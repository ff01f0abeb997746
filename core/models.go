package core

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Metadata keys recognised by the assembler and the extractors.
const (
	MetaFiletype   = "filetype"
	MetaFilename   = "filename"
	MetaPageNumber = "page_number"
)

// FiletypePDF is the filetype of paginated extraction output.
const FiletypePDF = "application/pdf"

// FiletypeTextPrefix prefixes the filetype of every flat extraction element.
const FiletypeTextPrefix = "text"

// Metadata is the scalar mapping attached to extraction elements and chunks.
type Metadata map[string]any

// Filetype returns the MIME-like filetype, or "" when absent.
func (m Metadata) Filetype() string {
	s, _ := m[MetaFiletype].(string)
	return s
}

// Filename returns the source filename, or "" when absent.
func (m Metadata) Filename() string {
	s, _ := m[MetaFilename].(string)
	return s
}

// PageNumber returns the page number and whether it is a positive integer.
// Integral floats are accepted so metadata decoded from JSON still resolves.
func (m Metadata) PageNumber() (int, bool) {
	switch v := m[MetaPageNumber].(type) {
	case int:
		return v, v > 0
	case int32:
		return int(v), v > 0
	case int64:
		return int(v), v > 0
	case uint32:
		return int(v), v > 0
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), v > 0
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), n > 0
	}
	return 0, false
}

// IsPaginated reports whether the metadata describes a paginated source.
func (m Metadata) IsPaginated() bool {
	return m.Filetype() == FiletypePDF
}

// IsFlat reports whether the metadata describes a single-element text source.
func (m Metadata) IsFlat() bool {
	return strings.HasPrefix(m.Filetype(), FiletypeTextPrefix)
}

// Clone returns a shallow copy of the mapping.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Serialize renders the canonical JSON form of the metadata.
// Keys are emitted in sorted order, so equal mappings always serialize to
// identical strings.
func (m Metadata) Serialize() (string, error) {
	if m == nil {
		return "{}", nil
	}
	bs, err := json.Marshal(map[string]any(m))
	if err != nil {
		return "", fmt.Errorf("serialize metadata: %w", err)
	}
	return string(bs), nil
}

// ParseMetadata decodes a serialized metadata string.
func ParseMetadata(s string) (Metadata, error) {
	if s == "" {
		return Metadata{}, nil
	}
	var m Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return m, nil
}

// Element is one unit of extracted content.
type Element struct {
	Text     string
	Metadata Metadata
}

// Chunk is the atomic persisted unit of retrievable text.
// Chunks are never mutated after assembly.
type Chunk struct {
	ID       int64
	Metadata string // canonical JSON
	Text     string
}

// Key returns the content identity of the chunk.
func (c Chunk) Key() IdentityKey {
	return IdentityKey{Metadata: c.Metadata, Text: c.Text}
}

// IdentityKey is the (metadata, text) pair used to detect duplicate chunks.
type IdentityKey struct {
	Metadata string
	Text     string
}

// Digest hashes the identity key with BLAKE2b into a 64-bit bucket value.
// Equal keys always produce equal digests; callers must still compare keys
// to rule out collisions.
func (k IdentityKey) Digest() uint64 {
	h, _ := blake2b.New(8, nil)
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(k.Metadata)))
	h.Write(n[:])
	h.Write([]byte(k.Metadata))
	h.Write([]byte(k.Text))
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// VectorRecord is a chunk projected together with its embedding.
type VectorRecord struct {
	ID       int64
	Text     string
	Metadata string
	Vector   []float32
}

// RecordFromChunk projects a chunk without a vector.
func RecordFromChunk(c Chunk) VectorRecord {
	return VectorRecord{ID: c.ID, Text: c.Text, Metadata: c.Metadata}
}

// SearchHit is one record returned by a similarity query.
type SearchHit struct {
	ID       int64
	Text     string
	Metadata string
	Score    float32
}

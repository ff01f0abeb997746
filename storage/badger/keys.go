package badger

import "encoding/binary"

// Key layout for checkpoint tables:
//
//	ckpt:<table>:meta        row count, big endian uint64
//	ckpt:<table>:row:<seq>   one row, seq is a big endian uint64
//
// Table names are plain identifiers, so one table's prefix never covers
// another table's keys.
const (
	checkpointPrefix = "ckpt"
	tableMetaSuffix  = "meta"
	tableRowSegment  = "row"
)

// makeTablePrefix returns the prefix shared by every key of a table.
func makeTablePrefix(table string) []byte {
	return []byte(checkpointPrefix + ":" + table + ":")
}

// makeTableMetaKey returns the key holding a table's row count.
func makeTableMetaKey(table string) []byte {
	return append(makeTablePrefix(table), tableMetaSuffix...)
}

// makeRowPrefix returns the prefix of a table's row keys.
func makeRowPrefix(table string) []byte {
	return append(makeTablePrefix(table), tableRowSegment+":"...)
}

// makeRowKey generates the key of the row at position seq.
// Written in BigEndian order so lexicographic order matches row order.
func makeRowKey(table string, seq uint64) []byte {
	prefix := makeRowPrefix(table)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

func encodeCount(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func decodeCount(val []byte) (uint64, bool) {
	if len(val) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(val), true
}

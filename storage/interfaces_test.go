package storage

import (
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
)

func TestValidateTableName(t *testing.T) {
	valid := []string{"ocr_data", "t", "_private", "Table2"}
	for _, name := range valid {
		assert.NoError(t, ValidateTableName(name), name)
	}

	invalid := []string{"", "2table", "drop table;", "a-b", "with space", "x\"y"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateTableName(name), ErrInvalidTableName, name)
	}
}

func TestRenumberRows(t *testing.T) {
	rows := []core.Chunk{
		{ID: 10, Metadata: "m", Text: "a"},
		{ID: 3, Metadata: "m", Text: "b"},
	}

	table := RenumberRows(rows)
	got := table.Rows()
	assert.Equal(t, int64(0), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

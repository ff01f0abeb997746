package chunking

import (
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfElement(text string, page int) core.Element {
	return core.Element{
		Text: text,
		Metadata: core.Metadata{
			core.MetaFiletype:   core.FiletypePDF,
			core.MetaFilename:   "doc.pdf",
			core.MetaPageNumber: page,
		},
	}
}

func TestAssembleEmpty(t *testing.T) {
	chunks, err := Assemble(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestAssemblePaginated(t *testing.T) {
	t.Run("groups elements by page", func(t *testing.T) {
		elements := []core.Element{
			pdfElement("alpha", 1),
			pdfElement("beta", 1),
			pdfElement("gamma", 2),
		}

		chunks, err := Assemble(elements, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 2)

		assert.Equal(t, "alpha beta", chunks[0].Text)
		assert.Equal(t, `{"filename":"doc.pdf","page_number":1}`, chunks[0].Metadata)
		assert.Equal(t, "gamma", chunks[1].Text)
		assert.Equal(t, `{"filename":"doc.pdf","page_number":2}`, chunks[1].Metadata)
	})

	t.Run("orders pages by first appearance", func(t *testing.T) {
		elements := []core.Element{
			pdfElement("p3", 3),
			pdfElement("p1", 1),
			pdfElement("p3 again", 3),
		}

		chunks, err := Assemble(elements, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "p3 p3 again", chunks[0].Text)
		assert.Equal(t, "p1", chunks[1].Text)
	})

	t.Run("drops extra metadata keys", func(t *testing.T) {
		e := pdfElement("text", 1)
		e.Metadata["coordinates"] = "ignored"

		chunks, err := Assemble([]core.Element{e}, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.NotContains(t, chunks[0].Metadata, "coordinates")
		assert.NotContains(t, chunks[0].Metadata, "filetype")
	})

	t.Run("filename comes from first element of the page", func(t *testing.T) {
		a := pdfElement("a", 1)
		b := pdfElement("b", 1)
		b.Metadata[core.MetaFilename] = "other.pdf"

		chunks, err := Assemble([]core.Element{a, b}, 0)
		require.NoError(t, err)
		assert.Contains(t, chunks[0].Metadata, `"doc.pdf"`)
	})

	t.Run("empty texts still join", func(t *testing.T) {
		chunks, err := Assemble([]core.Element{pdfElement("", 1), pdfElement("x", 1)}, 0)
		require.NoError(t, err)
		assert.Equal(t, " x", chunks[0].Text)
	})

	t.Run("missing page number is invalid", func(t *testing.T) {
		e := pdfElement("x", 1)
		delete(e.Metadata, core.MetaPageNumber)

		_, err := Assemble([]core.Element{e}, 0)
		assert.ErrorIs(t, err, core.ErrInvalidElement)
	})
}

func TestAssembleFlat(t *testing.T) {
	meta := core.Metadata{core.MetaFiletype: "text/py", core.MetaFilename: "main.py"}

	t.Run("single element keeps full metadata and text", func(t *testing.T) {
		text := "def main():\n    pass\n"
		chunks, err := Assemble([]core.Element{{Text: text, Metadata: meta}}, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 1)

		assert.Equal(t, text, chunks[0].Text)
		assert.Equal(t, `{"filename":"main.py","filetype":"text/py"}`, chunks[0].Metadata)
	})

	t.Run("multiple elements collapse into one chunk", func(t *testing.T) {
		chunks, err := Assemble([]core.Element{
			{Text: "one", Metadata: meta},
			{Text: "two", Metadata: meta},
		}, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "one two", chunks[0].Text)
	})
}

func TestAssembleUnsupported(t *testing.T) {
	e := core.Element{
		Text:     "PK",
		Metadata: core.Metadata{core.MetaFiletype: "application/zip", core.MetaFilename: "a.zip"},
	}

	chunks, err := Assemble([]core.Element{e}, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedFiletype)
	assert.Empty(t, chunks)
}

func TestAssembleIDs(t *testing.T) {
	elements := []core.Element{
		pdfElement("a", 1),
		pdfElement("b", 2),
		pdfElement("c", 3),
	}

	chunks, err := Assemble(elements, 7)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, int64(8), chunks[0].ID)
	assert.Equal(t, int64(9), chunks[1].ID)
	assert.Equal(t, int64(10), chunks[2].ID)

	flat, err := Assemble([]core.Element{{
		Text:     "x",
		Metadata: core.Metadata{core.MetaFiletype: "text/md", core.MetaFilename: "x.md"},
	}}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flat[0].ID)
}

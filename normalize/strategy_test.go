package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Strategy
	}{
		{"report.pdf", AcceptedAsIs},
		{"REPORT.PDF", AcceptedAsIs},
		{"notes.txt", AcceptedAsIs},
		{"main.cpp", AcceptedAsIs},
		{"/tmp/uploads/script.py", AcceptedAsIs},
		{"slides.pptx", RequiresConversion},
		{"scan.jpeg", RequiresConversion},
		{"letter.docx", RequiresConversion},
		{"noext", RequiresConversion},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestIsAllowed(t *testing.T) {
	assert.True(t, IsAllowed("a.pdf"))
	assert.True(t, IsAllowed("a.DOCX"))
	assert.True(t, IsAllowed("photo.png"))
	assert.False(t, IsAllowed("archive.zip"))
	assert.False(t, IsAllowed("README"))
	assert.False(t, IsAllowed("trailingdot."))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("x.tar.PDF"))
	assert.Equal(t, "", Extension("x"))
	assert.Equal(t, "", Extension("x."))
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "accepted-as-is", AcceptedAsIs.String())
	assert.Equal(t, "requires-conversion", RequiresConversion.String())
	assert.Equal(t, "unknown", Strategy(9).String())
}

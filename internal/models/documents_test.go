package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableBlockDimensions(t *testing.T) {
	tests := []struct {
		name     string
		cells    []TableCell
		wantRows int
		wantCols int
	}{
		{"empty", nil, 0, 0},
		{"single", []TableCell{{Content: "a"}}, 1, 1},
		{"sparse", []TableCell{{RowIndex: 4, ColumnIndex: 0}, {RowIndex: 1, ColumnIndex: 6}}, 5, 7},
		{"grid", []TableCell{{RowIndex: 0, ColumnIndex: 0}, {RowIndex: 0, ColumnIndex: 1}, {RowIndex: 1, ColumnIndex: 0}, {RowIndex: 1, ColumnIndex: 1}}, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := NewTableBlock(tt.cells)
			assert.Equal(t, tt.wantRows, tb.RowCount)
			assert.Equal(t, tt.wantCols, tb.ColumnCount)
			assert.Len(t, tb.Cells, len(tt.cells))
		})
	}
}

func TestNewTableBlockCopiesCells(t *testing.T) {
	cells := []TableCell{{Content: "a"}}
	tb := NewTableBlock(cells)
	cells[0].Content = "changed"
	assert.Equal(t, "a", tb.Cells[0].Content)
}

func TestMediaTypes(t *testing.T) {
	assert.True(t, MediaTypePDF.IsPDF())
	assert.True(t, MediaTypeWEBP.IsImage())
	assert.False(t, MediaType("image/gif").IsSupported())

	assert.Equal(t, MediaTypeJPEG, MediaTypeFromFilename("Photo.JPG"))
	assert.Equal(t, MediaTypePDF, MediaTypeFromFilename("a/b/c.pdf"))
	assert.Equal(t, MediaType(""), MediaTypeFromFilename("notes.txt"))
}

func TestExtractionResultJSONShape(t *testing.T) {
	b, err := json.Marshal(ExtractionResult{ExtractedFields: map[string]any{}, ProcessingMethod: MethodNone})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"fileName", "mediaType", "fileSizeBytes", "processedAt", "datasetId", "extractedFields", "processingMethod", "confidence", "providerNote"} {
		assert.Contains(t, m, key)
	}
	for _, key := range []string{"rawTextPreview", "fullTextLength", "tables", "errorDetail", "provider", "model", "tokensUsed"} {
		assert.NotContains(t, m, key)
	}
}

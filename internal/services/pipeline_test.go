package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/argus/internal/models"
	"github.com/BerylCAtieno/argus/internal/ocr"
)

func TestDocumentTextIsMemoized(t *testing.T) {
	calls := 0
	doc := NewDocument(pdfRequest(models.DatasetDefault), func([]byte) string {
		calls++
		return "hello"
	})

	assert.Equal(t, "hello", doc.Text())
	assert.Equal(t, "hello", doc.Text())
	assert.Equal(t, 1, calls)
}

func TestDocumentDefaultExtractorDegradesToEmpty(t *testing.T) {
	doc := NewDocument(pdfRequest(models.DatasetDefault), nil)
	assert.Equal(t, "", doc.Text())
}

func TestPDFChainOrder(t *testing.T) {
	chain := PDFChain(&stubOCR{}, &stubAI{})
	require.Len(t, chain, 3)
	assert.Equal(t, models.MethodOCRBackend, chain[0].Method())
	assert.Equal(t, models.MethodAIBackend, chain[1].Method())
	assert.Equal(t, models.MethodHeuristic, chain[2].Method())
}

func TestOCRStageSkipsWhenUnconfigured(t *testing.T) {
	o := &stubOCR{}
	stage := &OCRStage{Backend: o}

	_, err := stage.Attempt(context.Background(), NewDocument(pdfRequest(models.DatasetDefault), nil))
	assert.ErrorIs(t, err, ocr.ErrNotConfigured)
	assert.Zero(t, o.calls)

	var nilClient *ocr.Client
	_, err = (&OCRStage{Backend: nilClient}).Attempt(context.Background(), NewDocument(pdfRequest(models.DatasetDefault), nil))
	assert.ErrorIs(t, err, ocr.ErrNotConfigured)
}

func TestHeuristicStage(t *testing.T) {
	doc := NewDocument(pdfRequest(models.DatasetContract), func([]byte) string { return "Service Agreement between A and B" })

	out, err := (&HeuristicStage{}).Attempt(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 0.75, out.Confidence)
	assert.Equal(t, "contract", out.Fields["documentType"])
	assert.Contains(t, out.Fields, "statistics")
}

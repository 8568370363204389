package models

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaType is the declared content type of an uploaded document.
type MediaType string

const (
	MediaTypePDF  MediaType = "application/pdf"
	MediaTypeJPEG MediaType = "image/jpeg"
	MediaTypePNG  MediaType = "image/png"
	MediaTypeWEBP MediaType = "image/webp"
)

// SupportedMediaTypes lists the media types accepted by the upload route.
var SupportedMediaTypes = []MediaType{MediaTypePDF, MediaTypeJPEG, MediaTypePNG, MediaTypeWEBP}

func (m MediaType) IsPDF() bool { return m == MediaTypePDF }

func (m MediaType) IsImage() bool {
	switch m {
	case MediaTypeJPEG, MediaTypePNG, MediaTypeWEBP:
		return true
	}
	return false
}

func (m MediaType) IsSupported() bool { return m.IsPDF() || m.IsImage() }

// MediaTypeFromFilename guesses a supported media type from the file
// extension. It returns "" for anything else.
func MediaTypeFromFilename(name string) MediaType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MediaTypePDF
	case ".jpg", ".jpeg":
		return MediaTypeJPEG
	case ".png":
		return MediaTypePNG
	case ".webp":
		return MediaTypeWEBP
	}
	return ""
}

// ProcessingMethod records which stage of the fallback chain produced a result.
type ProcessingMethod string

const (
	MethodOCRBackend ProcessingMethod = "ocr-backend"
	MethodAIBackend  ProcessingMethod = "ai-backend"
	MethodHeuristic  ProcessingMethod = "heuristic"
	MethodNone       ProcessingMethod = "none"
)

// Fixed confidences per processing method. Heuristic confidence depends on
// the document classification and is not listed here.
const (
	ConfidenceOCRBackend = 0.9
	ConfidenceAIBackend  = 0.95
	ConfidenceNone       = 0.0
)

// Well-known dataset identifiers.
const (
	DatasetDefault  = "default-dataset"
	DatasetInvoice  = "invoice-dataset"
	DatasetContract = "contract-dataset"
)

// ExtractionRequest is one uploaded document. It is not modified after construction.
type ExtractionRequest struct {
	File      []byte
	MediaType MediaType
	DatasetID string
	FileName  string
}

// TableCell is a single cell detected by the OCR backend.
type TableCell struct {
	Content     string `json:"content"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
}

// TableBlock is a table detected by the OCR backend.
type TableBlock struct {
	RowCount    int         `json:"rowCount"`
	ColumnCount int         `json:"columnCount"`
	Cells       []TableCell `json:"cells"`
}

// NewTableBlock builds a table whose dimensions are derived from the
// largest row and column index among its cells.
func NewTableBlock(cells []TableCell) TableBlock {
	tb := TableBlock{Cells: make([]TableCell, len(cells))}
	copy(tb.Cells, cells)
	for _, c := range cells {
		if c.RowIndex+1 > tb.RowCount {
			tb.RowCount = c.RowIndex + 1
		}
		if c.ColumnIndex+1 > tb.ColumnCount {
			tb.ColumnCount = c.ColumnIndex + 1
		}
	}
	return tb
}

// ExtractionResult is the envelope returned for every processed document,
// whichever stage produced it.
type ExtractionResult struct {
	FileName         string           `json:"fileName"`
	MediaType        MediaType        `json:"mediaType"`
	FileSizeBytes    int64            `json:"fileSizeBytes"`
	ProcessedAt      time.Time        `json:"processedAt"`
	DatasetID        string           `json:"datasetId"`
	ExtractedFields  map[string]any   `json:"extractedFields"`
	RawTextPreview   *string          `json:"rawTextPreview,omitempty"`
	FullTextLength   *int             `json:"fullTextLength,omitempty"`
	Tables           []TableBlock     `json:"tables,omitempty"`
	ProcessingMethod ProcessingMethod `json:"processingMethod"`
	Confidence       float64          `json:"confidence"`
	ProviderNote     string           `json:"providerNote"`
	ErrorDetail      string           `json:"errorDetail,omitempty"`
	Provider         string           `json:"provider,omitempty"`
	Model            string           `json:"model,omitempty"`
	TokensUsed       int64            `json:"tokensUsed,omitempty"`
}

// UploadResponse wraps an ExtractionResult for the upload route.
type UploadResponse struct {
	Success    bool              `json:"success"`
	DocumentID string            `json:"documentId"`
	Message    string            `json:"message"`
	Data       *ExtractionResult `json:"data"`
	Status     string            `json:"status"`
}

// Dataset is the public view of a dataset prompt profile.
type Dataset struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	SystemPrompt string         `json:"systemPrompt"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

type DatasetListResponse struct {
	Success  bool      `json:"success"`
	Datasets []Dataset `json:"datasets"`
	Total    int       `json:"total"`
}

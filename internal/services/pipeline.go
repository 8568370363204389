package services

import (
	"context"
	"errors"

	"github.com/BerylCAtieno/argus/internal/extractor"
	"github.com/BerylCAtieno/argus/internal/models"
)

var (
	// ErrNoText ends a PDF chain: nothing later in the chain can work
	// without text.
	ErrNoText = errors.New("no text could be extracted from the PDF")
	// ErrVisionUnavailable is returned by the vision stage when no
	// vision-capable provider is configured.
	ErrVisionUnavailable = errors.New("image processing requires a vision-capable provider: set OPENAI_API_KEY")
)

// Stage is one step of a fallback chain. A non-nil error hands the
// document to the next stage.
type Stage interface {
	Name() string
	Method() models.ProcessingMethod
	Attempt(ctx context.Context, doc *Document) (*Outcome, error)
}

// Outcome is what a successful stage contributes to the envelope.
type Outcome struct {
	Fields     map[string]any
	Tables     []models.TableBlock
	Text       string
	Confidence float64
	Note       string
	Provider   string
	Model      string
	TokensUsed int64
}

// Document is one request moving through a chain. Embedded PDF text is
// extracted at most once.
type Document struct {
	Request *models.ExtractionRequest

	extract   func([]byte) string
	text      string
	extracted bool
}

func NewDocument(req *models.ExtractionRequest, extract func([]byte) string) *Document {
	if extract == nil {
		extract = extractor.PlainText
	}
	return &Document{Request: req, extract: extract}
}

// Text returns the embedded text of the document, or "" if there is none.
func (d *Document) Text() string {
	if !d.extracted {
		d.text = d.extract(d.Request.File)
		d.extracted = true
	}
	return d.text
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/argus/internal/analyzer"
	"github.com/BerylCAtieno/argus/internal/extractor"
	"github.com/BerylCAtieno/argus/internal/models"
	"github.com/BerylCAtieno/argus/internal/ocr"
)

type OCRBackend interface {
	Configured() bool
	AnalyzeDocument(ctx context.Context, data []byte, mediaType models.MediaType) (*ocr.Analysis, error)
}

type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, text, datasetID, fileName string) (*analyzer.Analysis, error)
}

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, mediaType models.MediaType, datasetID, fileName string) (*analyzer.Analysis, error)
}

// PDFChain is OCR, then model extraction over embedded text, then regex
// heuristics.
func PDFChain(backend OCRBackend, ai TextAnalyzer) []Stage {
	return []Stage{
		&OCRStage{Backend: backend},
		&TextAIStage{Analyzer: ai},
		&HeuristicStage{},
	}
}

func ImageChain(vision ImageAnalyzer) []Stage {
	return []Stage{&VisionStage{Analyzer: vision}}
}

type OCRStage struct {
	Backend OCRBackend
}

func (s *OCRStage) Name() string                    { return "ocr" }
func (s *OCRStage) Method() models.ProcessingMethod { return models.MethodOCRBackend }

func (s *OCRStage) Attempt(ctx context.Context, doc *Document) (*Outcome, error) {
	if s.Backend == nil || !s.Backend.Configured() {
		return nil, ocr.ErrNotConfigured
	}

	a, err := s.Backend.AnalyzeDocument(ctx, doc.Request.File, doc.Request.MediaType)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(a.Fields))
	for k, v := range a.Fields {
		fields[k] = v
	}

	return &Outcome{
		Fields:     fields,
		Tables:     a.Tables,
		Text:       a.Text,
		Confidence: a.Confidence,
		Note:       fmt.Sprintf("Extracted with Azure Document Intelligence (%d fields, %d tables)", len(a.Fields), len(a.Tables)),
	}, nil
}

type TextAIStage struct {
	Analyzer TextAnalyzer
}

func (s *TextAIStage) Name() string                    { return "ai-text" }
func (s *TextAIStage) Method() models.ProcessingMethod { return models.MethodAIBackend }

func (s *TextAIStage) Attempt(ctx context.Context, doc *Document) (*Outcome, error) {
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	if s.Analyzer == nil {
		return nil, analyzer.ErrNotConfigured
	}

	a, err := s.Analyzer.AnalyzeText(ctx, text, doc.Request.DatasetID, doc.Request.FileName)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Fields:     a.ExtractedData,
		Text:       text,
		Confidence: a.Confidence,
		Note:       fmt.Sprintf("Extracted by %s (%s)", a.Provider, a.Model),
		Provider:   a.Provider,
		Model:      a.Model,
		TokensUsed: a.TokensUsed,
	}, nil
}

type HeuristicStage struct{}

func (s *HeuristicStage) Name() string                    { return "heuristic" }
func (s *HeuristicStage) Method() models.ProcessingMethod { return models.MethodHeuristic }

func (s *HeuristicStage) Attempt(_ context.Context, doc *Document) (*Outcome, error) {
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}

	r := extractor.ExtractHeuristically(text, doc.Request.DatasetID)
	return &Outcome{
		Fields:     r.AsFields(),
		Text:       text,
		Confidence: r.Confidence,
		Note:       fmt.Sprintf("Extracted with pattern matching (document type: %s)", r.DocumentType),
	}, nil
}

type VisionStage struct {
	Analyzer ImageAnalyzer
}

func (s *VisionStage) Name() string                    { return "ai-vision" }
func (s *VisionStage) Method() models.ProcessingMethod { return models.MethodAIBackend }

func (s *VisionStage) Attempt(ctx context.Context, doc *Document) (*Outcome, error) {
	if s.Analyzer == nil {
		return nil, ErrVisionUnavailable
	}

	a, err := s.Analyzer.AnalyzeImage(ctx, doc.Request.File, doc.Request.MediaType, doc.Request.DatasetID, doc.Request.FileName)
	if errors.Is(err, analyzer.ErrNotConfigured) {
		return nil, ErrVisionUnavailable
	}
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Fields:     a.ExtractedData,
		Confidence: a.Confidence,
		Note:       fmt.Sprintf("Extracted from image by %s (%s)", a.Provider, a.Model),
		Provider:   a.Provider,
		Model:      a.Model,
		TokensUsed: a.TokensUsed,
	}, nil
}

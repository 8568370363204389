package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BerylCAtieno/argus/internal/analyzer"
	"github.com/BerylCAtieno/argus/internal/datasets"
	"github.com/BerylCAtieno/argus/internal/metrics"
	"github.com/BerylCAtieno/argus/internal/models"
	"github.com/BerylCAtieno/argus/internal/ocr"
	"github.com/BerylCAtieno/argus/internal/utils"
)

const previewLength = 500

const noTextNote = "No text could be extracted from the PDF. It may be scanned or image-only; " +
	"set AZURE_DOCUMENT_INTELLIGENCE_ENDPOINT and AZURE_DOCUMENT_INTELLIGENCE_KEY to enable OCR."

type DocumentService interface {
	ProcessDocument(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResult
	ListDatasets() []models.Dataset
	GetDataset(id string) (*models.Dataset, error)
}

type Options struct {
	PDFStages   []Stage
	ImageStages []Stage
	Registry    *datasets.Registry
	Metrics     *metrics.Metrics
	Logger      *utils.Logger
	// TextExtractor defaults to extractor.PlainText.
	TextExtractor func([]byte) string
	Now           func() time.Time
}

type documentService struct {
	pdfStages   []Stage
	imageStages []Stage
	registry    *datasets.Registry
	metrics     *metrics.Metrics
	logger      *utils.Logger
	extract     func([]byte) string
	now         func() time.Time
}

func NewService(opts Options) DocumentService {
	s := &documentService{
		pdfStages:   opts.PDFStages,
		imageStages: opts.ImageStages,
		registry:    opts.Registry,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		extract:     opts.TextExtractor,
		now:         opts.Now,
	}
	if s.registry == nil {
		s.registry = datasets.MustDefault()
	}
	if s.logger == nil {
		s.logger = utils.NopLogger()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// ProcessDocument runs the chain for the request's media type and returns
// an envelope describing the first stage that succeeded. It never fails:
// stage errors end up in providerNote and errorDetail.
func (s *documentService) ProcessDocument(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResult {
	start := time.Now()
	res := s.newEnvelope(req)
	log := s.logger.With("file_name", req.FileName, "media_type", req.MediaType, "dataset_id", req.DatasetID)

	var chain []Stage
	switch {
	case req.MediaType.IsPDF():
		chain = s.pdfStages
	case req.MediaType.IsImage():
		chain = s.imageStages
	default:
		res.ProviderNote = fmt.Sprintf("Unsupported media type %q. Supported types: %s", req.MediaType, supportedList())
		res.ErrorDetail = "unsupported media type"
		s.finish(log, res, start)
		return res
	}

	doc := NewDocument(req, s.extract)
	var failures []string
	var lastErr, lastFailure error

	for _, stage := range chain {
		out, err := s.attempt(ctx, log, stage, doc)
		if err == nil {
			s.apply(res, stage, out, failures, lastFailure)
			s.finish(log, res, start)
			return res
		}

		if errors.Is(err, ErrNoText) {
			s.noText(res, failures, lastFailure)
			s.finish(log, res, start)
			return res
		}

		failures = append(failures, fmt.Sprintf("%s: %v", stage.Name(), err))
		lastErr = err
		if !isUnconfigured(err) {
			lastFailure = err
		}
	}

	if lastErr == nil {
		res.ProviderNote = "No extraction stages are available for this media type"
	} else {
		res.ProviderNote = "All extraction stages failed: " + strings.Join(failures, "; ")
		if lastFailure != nil {
			res.ErrorDetail = lastFailure.Error()
		}
	}
	s.finish(log, res, start)
	return res
}

// noText fills the envelope for a PDF without embedded text. The OCR hint
// only applies when no earlier stage actually ran and failed.
func (s *documentService) noText(res *models.ExtractionResult, failures []string, lastFailure error) {
	if lastFailure == nil {
		res.ProviderNote = noTextNote
		res.ErrorDetail = ErrNoText.Error()
		return
	}
	res.ProviderNote = "No text could be extracted from the PDF and earlier stages failed: " + strings.Join(failures, "; ")
	res.ErrorDetail = lastFailure.Error()
}

func (s *documentService) ListDatasets() []models.Dataset {
	profiles := s.registry.List()
	out := make([]models.Dataset, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Dataset())
	}
	return out
}

func (s *documentService) GetDataset(id string) (*models.Dataset, error) {
	p, ok := s.registry.Lookup(id)
	if !ok {
		return nil, utils.NewNotFoundError(fmt.Sprintf("Dataset %q not found", id))
	}
	ds := p.Dataset()
	return &ds, nil
}

func (s *documentService) attempt(ctx context.Context, log *utils.Logger, stage Stage, doc *Document) (*Outcome, error) {
	started := time.Now()
	out, err := stage.Attempt(ctx, doc)
	elapsed := time.Since(started)

	switch {
	case err == nil:
		s.metrics.RecordStage(stage.Name(), "success", elapsed)
		s.metrics.RecordTokens(out.Provider, out.TokensUsed)
		log.Debug("pipeline.stage.ok", "stage", stage.Name(), "elapsed_ms", elapsed.Milliseconds())
	case isUnconfigured(err):
		s.metrics.RecordStage(stage.Name(), "skipped", elapsed)
		log.Debug("pipeline.stage.skipped", "stage", stage.Name(), "reason", err.Error())
	default:
		s.metrics.RecordStage(stage.Name(), "failure", elapsed)
		log.Warn("pipeline.stage.failed", "stage", stage.Name(), "error", err, "elapsed_ms", elapsed.Milliseconds())
	}
	return out, err
}

func (s *documentService) apply(res *models.ExtractionResult, stage Stage, out *Outcome, failures []string, lastFailure error) {
	res.ProcessingMethod = stage.Method()
	res.Confidence = out.Confidence
	res.Provider = out.Provider
	res.Model = out.Model
	res.TokensUsed = out.TokensUsed
	res.Tables = out.Tables
	if out.Fields != nil {
		res.ExtractedFields = out.Fields
	}

	res.ProviderNote = out.Note
	if len(failures) > 0 {
		res.ProviderNote += ". Fallback after: " + strings.Join(failures, "; ")
	}
	if lastFailure != nil {
		res.ErrorDetail = lastFailure.Error()
	}

	if out.Text != "" {
		preview := previewText(out.Text)
		length := utf8.RuneCountInString(out.Text)
		res.RawTextPreview = &preview
		res.FullTextLength = &length
	}
}

func (s *documentService) newEnvelope(req *models.ExtractionRequest) *models.ExtractionResult {
	return &models.ExtractionResult{
		FileName:         req.FileName,
		MediaType:        req.MediaType,
		FileSizeBytes:    int64(len(req.File)),
		ProcessedAt:      s.now(),
		DatasetID:        req.DatasetID,
		ExtractedFields:  map[string]any{},
		ProcessingMethod: models.MethodNone,
		Confidence:       models.ConfidenceNone,
	}
}

func (s *documentService) finish(log *utils.Logger, res *models.ExtractionResult, start time.Time) {
	s.metrics.RecordDocument(string(res.ProcessingMethod), string(res.MediaType))
	log.Info("Document processed",
		"method", res.ProcessingMethod,
		"confidence", res.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds())
}

func isUnconfigured(err error) bool {
	return errors.Is(err, ocr.ErrNotConfigured) ||
		errors.Is(err, analyzer.ErrNotConfigured) ||
		errors.Is(err, analyzer.ErrVisionNotSupported) ||
		errors.Is(err, ErrVisionUnavailable)
}

func previewText(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}

func supportedList() string {
	names := make([]string, 0, len(models.SupportedMediaTypes))
	for _, mt := range models.SupportedMediaTypes {
		names = append(names, string(mt))
	}
	return strings.Join(names, ", ")
}

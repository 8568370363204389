// Package app builds the extraction pipeline from configuration. Both the
// HTTP server and the CLI start here.
package app

import (
	"fmt"
	"net/http"

	"github.com/BerylCAtieno/argus/internal/analyzer"
	"github.com/BerylCAtieno/argus/internal/config"
	"github.com/BerylCAtieno/argus/internal/datasets"
	"github.com/BerylCAtieno/argus/internal/metrics"
	"github.com/BerylCAtieno/argus/internal/ocr"
	"github.com/BerylCAtieno/argus/internal/router"
	"github.com/BerylCAtieno/argus/internal/services"
	"github.com/BerylCAtieno/argus/internal/utils"
)

type App struct {
	Config   *config.Config
	Logger   *utils.Logger
	Registry *datasets.Registry
	OCR      *ocr.Client
	Analyzer analyzer.Analyzer
	Metrics  *metrics.Metrics
	Service  services.DocumentService
}

func New(cfg *config.Config, logger *utils.Logger) (*App, error) {
	if logger == nil {
		logger = utils.NopLogger()
	}

	registry, err := datasets.Load(cfg.DatasetsFile)
	if err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}

	ocrClient := ocr.NewClient(ocr.Config{
		Endpoint:     cfg.AzureEndpoint,
		Key:          cfg.AzureKey,
		Model:        cfg.AzureModel,
		APIVersion:   cfg.AzureAPIVersion,
		PollInterval: cfg.OCRPollInterval,
		Timeout:      cfg.OCRTimeout,
	}, nil, logger.With("component", "ocr"))

	llm := analyzer.New(analyzer.Config{
		GroqAPIKey:        cfg.GroqAPIKey,
		GroqModel:         cfg.GroqModel,
		GroqBaseURL:       cfg.GroqBaseURL,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIModel:       cfg.OpenAIModel,
		OpenAIVisionModel: cfg.OpenAIVisionModel,
		OpenAIBaseURL:     cfg.OpenAIBaseURL,
		Temperature:       cfg.LLMTemperature,
		Timeout:           cfg.LLMTimeout,
		MaxPromptChars:    cfg.LLMMaxPromptChars,
	}, registry, nil, logger.With("component", "analyzer"))

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	svc := services.NewService(services.Options{
		PDFStages:   services.PDFChain(ocrClient, llm),
		ImageStages: services.ImageChain(llm),
		Registry:    registry,
		Metrics:     m,
		Logger:      logger.With("component", "pipeline"),
	})

	logger.Info("Extraction pipeline ready",
		"ocr_configured", cfg.OCRConfigured(),
		"text_ai_configured", llm.TextConfigured(),
		"vision_configured", llm.VisionConfigured(),
		"datasets", len(registry.List()))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		OCR:      ocrClient,
		Analyzer: llm,
		Metrics:  m,
		Service:  svc,
	}, nil
}

func (a *App) Handler() http.Handler {
	return router.NewRouter(a.Service, router.Options{
		MaxFileSize: a.Config.MaxFileSize,
		Metrics:     a.Metrics,
	}, a.Logger)
}

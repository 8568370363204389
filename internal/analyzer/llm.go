package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/BerylCAtieno/argus/internal/datasets"
	"github.com/BerylCAtieno/argus/internal/models"
	"github.com/BerylCAtieno/argus/internal/utils"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
)

var (
	// ErrNotConfigured means neither GROQ_API_KEY nor OPENAI_API_KEY is set.
	ErrNotConfigured = errors.New("no AI provider configured: set GROQ_API_KEY or OPENAI_API_KEY")
	// ErrVisionNotSupported means only the text-only provider is configured.
	ErrVisionNotSupported = errors.New("image extraction requires OPENAI_API_KEY: the GROQ_API_KEY provider is text-only")
)

type Config struct {
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIVisionModel string
	OpenAIBaseURL     string

	Temperature    float64
	Timeout        time.Duration
	MaxPromptChars int
}

// Analysis is a successful model extraction.
type Analysis struct {
	ExtractedData map[string]any
	Provider      string
	Model         string
	TokensUsed    int64
	Confidence    float64
}

type Analyzer interface {
	AnalyzeText(ctx context.Context, text, datasetID, fileName string) (*Analysis, error)
	AnalyzeImage(ctx context.Context, data []byte, mediaType models.MediaType, datasetID, fileName string) (*Analysis, error)
	TextConfigured() bool
	VisionConfigured() bool
}

type provider struct {
	name        string
	client      openai.Client
	model       string
	visionModel string
}

type llmAnalyzer struct {
	groq        *provider
	openai      *provider
	registry    *datasets.Registry
	temperature float64
	timeout     time.Duration
	maxChars    int
	logger      *utils.Logger
}

// New builds an analyzer for whichever providers have keys. httpClient may be
// nil; tests pass the client of an httptest server.
func New(cfg Config, registry *datasets.Registry, httpClient *http.Client, logger *utils.Logger) Analyzer {
	if logger == nil {
		logger = utils.NopLogger()
	}
	if registry == nil {
		registry = datasets.MustDefault()
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = 8000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	a := &llmAnalyzer{
		registry:    registry,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		maxChars:    cfg.MaxPromptChars,
		logger:      logger,
	}

	if cfg.GroqAPIKey != "" {
		a.groq = &provider{
			name:   ProviderGroq,
			client: newClient(cfg.GroqAPIKey, cfg.GroqBaseURL, httpClient),
			model:  cfg.GroqModel,
		}
	}
	if cfg.OpenAIAPIKey != "" {
		a.openai = &provider{
			name:        ProviderOpenAI,
			client:      newClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, httpClient),
			model:       cfg.OpenAIModel,
			visionModel: cfg.OpenAIVisionModel,
		}
	}

	return a
}

func newClient(apiKey, baseURL string, httpClient *http.Client) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return openai.NewClient(opts...)
}

func (a *llmAnalyzer) TextConfigured() bool { return a.groq != nil || a.openai != nil }

func (a *llmAnalyzer) VisionConfigured() bool { return a.openai != nil }

func (a *llmAnalyzer) AnalyzeText(ctx context.Context, text, datasetID, fileName string) (*Analysis, error) {
	p := a.groq
	if p == nil {
		p = a.openai
	}
	if p == nil {
		return nil, ErrNotConfigured
	}

	profile := a.registry.Resolve(datasetID)
	user := fmt.Sprintf("File name: %s\n\nDocument text:\n%s", fileName, truncate(text, a.maxChars))

	return a.complete(ctx, p, p.model, profile, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt(profile)),
		openai.UserMessage(user),
	})
}

func (a *llmAnalyzer) AnalyzeImage(ctx context.Context, data []byte, mediaType models.MediaType, datasetID, fileName string) (*Analysis, error) {
	if a.openai == nil {
		if a.groq != nil {
			return nil, ErrVisionNotSupported
		}
		return nil, ErrNotConfigured
	}

	profile := a.registry.Resolve(datasetID)
	dataURL := "data:" + string(mediaType) + ";base64," + base64.StdEncoding.EncodeToString(data)
	instruction := fmt.Sprintf("File name: %s\n\nExtract the requested information from the attached image.", fileName)

	model := a.openai.visionModel
	if model == "" {
		model = a.openai.model
	}

	return a.complete(ctx, a.openai, model, profile, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt(profile)),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(instruction),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		}),
	})
}

func (a *llmAnalyzer) complete(ctx context.Context, p *provider, model string, profile datasets.Profile, messages []openai.ChatCompletionMessageParamUnion) (*Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	a.logger.Debug("llm.extract.start", "provider", p.name, "model", model, "dataset", profile.ID)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(a.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		a.logger.Warn("llm.extract.error", "provider", p.name, "model", model, "error", err)
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	data, err := parseResponse(resp.Choices[0].Message.Content, profile)
	if err != nil {
		a.logger.Warn("llm.extract.invalid", "provider", p.name, "model", model, "error", err)
		return nil, fmt.Errorf("%s response rejected: %w", p.name, err)
	}

	usedModel := resp.Model
	if usedModel == "" {
		usedModel = model
	}

	a.logger.Info("llm.extract.ok",
		"provider", p.name,
		"model", usedModel,
		"tokens", resp.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds())

	return &Analysis{
		ExtractedData: data,
		Provider:      p.name,
		Model:         usedModel,
		TokensUsed:    resp.Usage.TotalTokens,
		Confidence:    models.ConfidenceAIBackend,
	}, nil
}

func systemPrompt(p datasets.Profile) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.SystemPrompt))
	b.WriteString("\n\nRespond ONLY with a single valid JSON object (no markdown, no code blocks). Use null for values that are not present in the document.")
	if len(p.OutputSchema) > 0 {
		if schema, err := json.Marshal(p.OutputSchema); err == nil {
			b.WriteString("\nThe object must match this JSON schema:\n")
			b.Write(schema)
		}
	}
	return b.String()
}

// parseResponse decodes the model output and checks it against the
// dataset's output schema.
func parseResponse(content string, profile datasets.Profile) (map[string]any, error) {
	content = strings.TrimSpace(extractJSON(strings.TrimSpace(content)))
	if content == "" {
		return nil, errors.New("empty response content")
	}

	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	if err := profile.Validate(v); err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return obj, nil
}

// extractJSON strips a surrounding markdown code block if present.
func extractJSON(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	start := strings.IndexByte(content, '\n')
	if start < 0 {
		return strings.Trim(content, "`")
	}
	body := content[start+1:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

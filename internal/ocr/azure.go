// Package ocr calls Azure Document Intelligence to read text, key/value
// pairs and tables from documents.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BerylCAtieno/argus/internal/models"
	"github.com/BerylCAtieno/argus/internal/utils"
)

// ErrNotConfigured is returned when the endpoint or key is missing.
var ErrNotConfigured = errors.New("ocr backend not configured")

const (
	defaultModel        = "prebuilt-layout"
	defaultAPIVersion   = "2024-11-30"
	defaultPollInterval = time.Second
	defaultTimeout      = 90 * time.Second
	maxErrorBody        = 2048
)

type Config struct {
	Endpoint     string
	Key          string
	Model        string
	APIVersion   string
	PollInterval time.Duration
	Timeout      time.Duration
}

// Analysis is a successful OCR read.
type Analysis struct {
	Text       string
	Fields     map[string]string
	Tables     []models.TableBlock
	Confidence float64
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *utils.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *utils.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Configured reports whether both endpoint and key are present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.Endpoint != "" && c.cfg.Key != ""
}

// AnalyzeDocument submits data for analysis and polls until the operation
// finishes, fails, or the configured timeout elapses.
func (c *Client) AnalyzeDocument(ctx context.Context, data []byte, mediaType models.MediaType) (*Analysis, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	c.logger.Debug("ocr.analyze.start", "model", c.cfg.Model, "bytes", len(data), "media_type", mediaType)

	opURL, err := c.submit(ctx, data, mediaType)
	if err != nil {
		return nil, err
	}

	result, err := c.poll(ctx, opURL)
	if err != nil {
		return nil, err
	}

	a := toAnalysis(result)
	c.logger.Info("ocr.analyze.ok",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"text_length", len(a.Text),
		"fields", len(a.Fields),
		"tables", len(a.Tables))
	return a, nil
}

func (c *Client) submit(ctx context.Context, data []byte, mediaType models.MediaType) (string, error) {
	q := url.Values{}
	q.Set("api-version", c.cfg.APIVersion)
	q.Set("features", "keyValuePairs")
	endpoint := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?%s",
		c.cfg.Endpoint, url.PathEscape(c.cfg.Model), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", string(mediaType))
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", statusError("analyze", resp)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", errors.New("analyze response missing Operation-Location header")
	}
	return opURL, nil
}

func (c *Client) poll(ctx context.Context, opURL string) (*analyzeResult, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		op, err := c.fetch(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(op.Status) {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, errors.New("analysis succeeded without a result")
			}
			return op.AnalyzeResult, nil
		case "failed", "canceled":
			msg := op.Status
			if op.Error != nil && op.Error.Message != "" {
				msg = op.Error.Message
			}
			return nil, fmt.Errorf("analysis %s: %s", strings.ToLower(op.Status), msg)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("analysis did not finish: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) fetch(ctx context.Context, opURL string) (*operation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll analysis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("poll", resp)
	}

	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("failed to decode analysis status: %w", err)
	}
	return &op, nil
}

func statusError(stage string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Message != "" {
		return fmt.Errorf("%s returned status %d: %s", stage, resp.StatusCode, env.Error.Message)
	}
	return fmt.Errorf("%s returned status %d", stage, resp.StatusCode)
}

func toAnalysis(r *analyzeResult) *Analysis {
	a := &Analysis{
		Text:       r.Content,
		Fields:     make(map[string]string),
		Confidence: models.ConfidenceOCRBackend,
	}

	for _, kv := range r.KeyValuePairs {
		if kv.Key == nil || kv.Value == nil {
			continue
		}
		k := strings.TrimSpace(kv.Key.Content)
		v := strings.TrimSpace(kv.Value.Content)
		if k == "" || v == "" {
			continue
		}
		a.Fields[k] = v
	}

	for _, t := range r.Tables {
		cells := make([]models.TableCell, 0, len(t.Cells))
		for _, cell := range t.Cells {
			cells = append(cells, models.TableCell{
				Content:     cell.Content,
				RowIndex:    cell.RowIndex,
				ColumnIndex: cell.ColumnIndex,
			})
		}
		a.Tables = append(a.Tables, models.NewTableBlock(cells))
	}

	return a
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type operation struct {
	Status        string         `json:"status"`
	Error         *apiError      `json:"error,omitempty"`
	AnalyzeResult *analyzeResult `json:"analyzeResult,omitempty"`
}

type analyzeResult struct {
	Content       string         `json:"content"`
	KeyValuePairs []keyValuePair `json:"keyValuePairs"`
	Tables        []table        `json:"tables"`
}

type keyValuePair struct {
	Key   *element `json:"key"`
	Value *element `json:"value"`
}

type element struct {
	Content string `json:"content"`
}

type table struct {
	RowCount    int         `json:"rowCount"`
	ColumnCount int         `json:"columnCount"`
	Cells       []tableCell `json:"cells"`
}

type tableCell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

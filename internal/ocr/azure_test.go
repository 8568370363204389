package ocr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/argus/internal/models"
)

const succeededBody = `{
  "status": "succeeded",
  "analyzeResult": {
    "content": "INVOICE\nTotal: $1,250.00",
    "keyValuePairs": [
      {"key": {"content": "Invoice No"}, "value": {"content": "INV-001"}},
      {"key": {"content": "Total"}, "value": {"content": "$1,250.00"}},
      {"key": {"content": "Notes"}, "value": {"content": ""}},
      {"key": {"content": "Orphan"}}
    ],
    "tables": [
      {"rowCount": 2, "columnCount": 2, "cells": [
        {"rowIndex": 0, "columnIndex": 0, "content": "Item"},
        {"rowIndex": 0, "columnIndex": 1, "content": "Price"},
        {"rowIndex": 1, "columnIndex": 0, "content": "Widget"},
        {"rowIndex": 1, "columnIndex": 1, "content": "$10"}
      ]},
      {"cells": [
        {"rowIndex": 2, "columnIndex": 4, "content": "sparse"}
      ]}
    ]
  }
}`

type fakeAzure struct {
	srv        *httptest.Server
	analyzeHit atomic.Int32
	pollHit    atomic.Int32
	runningFor int32
	final      string
	submitCode int
}

func newFakeAzure(t *testing.T, final string) *fakeAzure {
	t.Helper()
	f := &fakeAzure{final: final, submitCode: http.StatusAccepted}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"code":"401","message":"Access denied"}}`)
			return
		}
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":analyze"):
			f.analyzeHit.Add(1)
			if f.submitCode != http.StatusAccepted {
				w.WriteHeader(f.submitCode)
				io.WriteString(w, `{"error":{"code":"429","message":"Rate limit exceeded"}}`)
				return
			}
			w.Header().Set("Operation-Location", f.srv.URL+"/operations/op-1")
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodGet && r.URL.Path == "/operations/op-1":
			n := f.pollHit.Add(1)
			w.Header().Set("Content-Type", "application/json")
			if n <= f.runningFor {
				io.WriteString(w, `{"status":"running"}`)
				return
			}
			io.WriteString(w, f.final)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAzure) client(key string) *Client {
	return NewClient(Config{
		Endpoint:     f.srv.URL + "/",
		Key:          key,
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
	}, f.srv.Client(), nil)
}

func TestAnalyzeDocumentNotConfigured(t *testing.T) {
	f := newFakeAzure(t, succeededBody)
	c := NewClient(Config{Endpoint: f.srv.URL}, nil, nil)

	assert.False(t, c.Configured())
	_, err := c.AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, f.analyzeHit.Load())
}

func TestAnalyzeDocumentSuccess(t *testing.T) {
	f := newFakeAzure(t, succeededBody)
	f.runningFor = 2

	a, err := f.client("secret").AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	require.NoError(t, err)

	assert.Equal(t, "INVOICE\nTotal: $1,250.00", a.Text)
	assert.Equal(t, map[string]string{"Invoice No": "INV-001", "Total": "$1,250.00"}, a.Fields)
	assert.Equal(t, models.ConfidenceOCRBackend, a.Confidence)
	assert.EqualValues(t, 3, f.pollHit.Load())

	require.Len(t, a.Tables, 2)
	assert.Equal(t, 2, a.Tables[0].RowCount)
	assert.Equal(t, 2, a.Tables[0].ColumnCount)
	assert.Len(t, a.Tables[0].Cells, 4)
	assert.Equal(t, 3, a.Tables[1].RowCount)
	assert.Equal(t, 5, a.Tables[1].ColumnCount)
}

func TestAnalyzeDocumentTableDimensionsCoverCells(t *testing.T) {
	f := newFakeAzure(t, succeededBody)

	a, err := f.client("secret").AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	require.NoError(t, err)

	for _, tb := range a.Tables {
		for _, c := range tb.Cells {
			assert.Less(t, c.RowIndex, tb.RowCount)
			assert.Less(t, c.ColumnIndex, tb.ColumnCount)
		}
	}
}

func TestAnalyzeDocumentFailedStatus(t *testing.T) {
	f := newFakeAzure(t, `{"status":"failed","error":{"code":"InvalidContent","message":"The file is corrupted"}}`)

	_, err := f.client("secret").AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The file is corrupted")
}

func TestAnalyzeDocumentAuthFailure(t *testing.T) {
	f := newFakeAzure(t, succeededBody)

	_, err := f.client("wrong").AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Access denied")
}

func TestAnalyzeDocumentQuotaExceeded(t *testing.T) {
	f := newFakeAzure(t, succeededBody)
	f.submitCode = http.StatusTooManyRequests

	_, err := f.client("secret").AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Zero(t, f.pollHit.Load())
}

func TestAnalyzeDocumentMalformedStatus(t *testing.T) {
	f := newFakeAzure(t, `{"status":`)

	_, err := f.client("secret").AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	assert.Error(t, err)
}

func TestAnalyzeDocumentTimeout(t *testing.T) {
	f := newFakeAzure(t, succeededBody)
	f.runningFor = 1 << 30

	c := NewClient(Config{
		Endpoint:     f.srv.URL,
		Key:          "secret",
		PollInterval: 5 * time.Millisecond,
		Timeout:      50 * time.Millisecond,
	}, f.srv.Client(), nil)

	_, err := c.AnalyzeDocument(context.Background(), []byte("%PDF"), models.MediaTypePDF)
	require.Error(t, err)
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/argus/internal/models"
	"github.com/BerylCAtieno/argus/internal/services"
	"github.com/BerylCAtieno/argus/internal/utils"
)

const (
	DefaultMaxFileSize = 10 << 20 // 10MB
	apiVersion         = "1.0.0"

	// multipart framing and the datasetId field ride on top of the file
	formOverhead = 1 << 20
)

type DocumentHandler struct {
	service     services.DocumentService
	logger      *utils.Logger
	maxFileSize int64
	now         func() time.Time
}

func NewDocumentHandler(service services.DocumentService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &DocumentHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	tooLarge := utils.NewBadRequestError("File too large. Maximum size is " + humanSize(h.maxFileSize) + ".")

	// Check Content-Length header first to reject oversized requests early
	if r.ContentLength > h.maxFileSize+formOverhead {
		h.respondError(w, tooLarge)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+formOverhead)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, tooLarge)
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	mediaType := determineMediaType(header.Filename, header.Header.Get("Content-Type"))

	datasetID := strings.TrimSpace(r.FormValue("datasetId"))
	if datasetID == "" {
		datasetID = models.DatasetDefault
	}

	h.logger.Info("File upload attempt",
		"filename", header.Filename,
		"reported_content_type", header.Header.Get("Content-Type"),
		"determined_media_type", mediaType,
		"dataset_id", datasetID)

	if !mediaType.IsSupported() {
		h.respondError(w, utils.NewBadRequestError("Invalid file type. Only PDF and images are supported."))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.respondError(w, utils.WrapInternal("Failed to read file", err))
		return
	}

	if int64(len(data)) > h.maxFileSize {
		h.respondError(w, tooLarge)
		return
	}

	if len(data) == 0 {
		h.respondError(w, utils.NewBadRequestError("Uploaded file is empty"))
		return
	}

	req := &models.ExtractionRequest{
		File:      data,
		MediaType: mediaType,
		DatasetID: datasetID,
		FileName:  header.Filename,
	}

	docID := utils.GenerateID()
	result := h.service.ProcessDocument(r.Context(), req)

	resp := &models.UploadResponse{
		Success:    true,
		DocumentID: docID,
		Message:    "Document processed successfully",
		Data:       result,
		Status:     "completed",
	}
	if result.ProcessingMethod == models.MethodNone {
		resp.Message = "Document could not be processed"
		resp.Status = "failed"
	}

	h.logger.Info("Document uploaded successfully",
		"id", docID,
		"filename", header.Filename,
		"method", result.ProcessingMethod,
		"status", resp.Status)

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ds := h.service.ListDatasets()
	h.respondJSON(w, http.StatusOK, models.DatasetListResponse{
		Success:  true,
		Datasets: ds,
		Total:    len(ds),
	})
}

func (h *DocumentHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Dataset ID is required"))
		return
	}

	ds, err := h.service.GetDataset(id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "dataset": ds})
}

func (h *DocumentHandler) Hello(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message":   "Hello from Argus API",
		"timestamp": h.now().Format(time.RFC3339Nano),
		"version":   apiVersion,
	})
}

func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// determineMediaType trusts the part's declared type and falls back to the
// file extension when the client sent none or a generic one.
func determineMediaType(filename, headerContentType string) models.MediaType {
	if mt, _, err := mime.ParseMediaType(headerContentType); err == nil {
		mt = strings.ToLower(mt)
		if mt != "application/octet-stream" && mt != "" {
			if mt == "image/jpg" {
				mt = string(models.MediaTypeJPEG)
			}
			return models.MediaType(mt)
		}
	}

	if mt := models.MediaTypeFromFilename(filename); mt != "" {
		return mt
	}

	return models.MediaType(headerContentType)
}

func humanSize(n int64) string {
	if n%(1<<20) == 0 {
		return strconv.FormatInt(n>>20, 10) + "MB"
	}
	if n%(1<<10) == 0 {
		return strconv.FormatInt(n>>10, 10) + "KB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

func (h *DocumentHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *DocumentHandler) respondError(w http.ResponseWriter, err error) {
	var status int
	var message string

	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		status = appErr.StatusCode
		message = appErr.Message
	default:
		status = http.StatusInternalServerError
		message = "Internal server error"
	}

	h.logger.Error("Request error", "status", status, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

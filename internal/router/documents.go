package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/argus/internal/handlers"
	"github.com/BerylCAtieno/argus/internal/metrics"
	"github.com/BerylCAtieno/argus/internal/middleware"
	"github.com/BerylCAtieno/argus/internal/services"
	"github.com/BerylCAtieno/argus/internal/utils"
)

type Options struct {
	MaxFileSize int64
	// Metrics is served on /metrics when non-nil.
	Metrics *metrics.Metrics
}

func NewRouter(docService services.DocumentService, opts Options, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	docHandler := handlers.NewDocumentHandler(docService, opts.MaxFileSize, logger)

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	// Routes stay on the root router so a method mismatch answers 405.
	r.HandleFunc("/api/health", docHandler.Health).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/hello", docHandler.Hello).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/api/documents/upload", docHandler.UploadDocument).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/datasets", docHandler.ListDatasets).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/datasets/{id}", docHandler.GetDataset).Methods(http.MethodGet, http.MethodOptions)

	return r
}

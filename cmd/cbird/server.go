package main

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortemezzo/cbird/internal/indexer"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/startup"
)

// HealthResponse is served on /healthz.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Indexing     bool   `json:"indexing"`
	LastIndexed  string `json:"lastIndexed,omitempty"`
	TotalItems   int    `json:"totalItems"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

func newMetricsRouter(idx *indexer.Indexer) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler(idx)).Methods(http.MethodGet)
	return r
}

func healthHandler(idx *indexer.Indexer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response := HealthResponse{
			Status:       "healthy",
			Version:      startup.Version,
			Indexing:     idx.IsIndexing(),
			TotalItems:   idx.Database().GetStats().TotalItems,
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
		}
		if last := idx.LastIndexTime(); !last.IsZero() {
			response.LastIndexed = last.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logging.Warn("Failed to encode health response: %v", err)
		}
	}
}

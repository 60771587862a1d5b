package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/launchwatch/launchcoin-feed/internal/models"
	"github.com/sirupsen/logrus"
)

// SnapshotReader returns the cached launches
type SnapshotReader interface {
	Current() []models.Record
}

// Poller is the subset of the polling service exposed over HTTP
type Poller interface {
	GetMetrics() string
	TriggerPoll() bool
}

// NewRouter builds the HTTP handler serving launches, health, metrics and the frontend.
// CORS wraps the whole router so preflights are answered for every path.
func NewRouter(reader SnapshotReader, poller Poller, staticDir string) http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/api/tweets", tweetsHandler(reader)).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metricsHandler(poller)).Methods(http.MethodGet)
	router.HandleFunc("/trigger", triggerHandler(poller)).Methods(http.MethodPost)
	router.HandleFunc("/", indexHandler(staticDir)).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	router.NotFoundHandler = loggingMiddleware(http.HandlerFunc(notFoundHandler))

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)(router)
}

func tweetsHandler(reader SnapshotReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := reader.Current()
		logrus.Debugf("Serving /api/tweets with %d launches", len(records))

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			logrus.Errorf("Failed to encode launches: %v", err)
		}
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(poller Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(poller.GetMetrics()))
	}
}

func triggerHandler(poller Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !poller.TriggerPoll() {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"Poll already running"}`))
			return
		}

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Poll triggered successfully"}`))
	}
}

func indexHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indexPath := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(indexPath); err != nil {
			logrus.Errorf("index.html not found at %s", indexPath)
			http.Error(w, "Error: index.html not found in static folder", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, indexPath)
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	logrus.Errorf("404 error for %s", r.URL.Path)
	http.Error(w, "Page not found: "+r.URL.Path+". Check if resource exists.", http.StatusNotFound)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("Request")
	})
}

// Package metrics exposes the daemon's operational counters over a small
// Prometheus endpoint, plus a liveness route for the service manager.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
)

var (
	// LinesTransmitted counts line-protocol lines the backend accepted.
	LinesTransmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xlatnagiosdatad_lines_transmitted_total",
		Help: "Line-protocol lines accepted by the backend.",
	})
	// LinesRejected counts source lines diverted to the upload-error log.
	LinesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xlatnagiosdatad_lines_rejected_total",
		Help: "Source lines the backend rejected or that failed to parse.",
	})
	// FilesDeleted counts fully consumed spool files unlinked from disk.
	FilesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xlatnagiosdatad_files_deleted_total",
		Help: "Spool files deleted after full consumption.",
	})
	// BackendUnreachable counts iterations skipped because ping or
	// database provisioning failed.
	BackendUnreachable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xlatnagiosdatad_backend_unreachable_total",
		Help: "Iterations skipped because the backend was unreachable.",
	})
	// IterationDuration observes wall time per ingest iteration.
	IterationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xlatnagiosdatad_iteration_duration_seconds",
		Help:    "Duration of one ingest iteration.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})
)

// logAdapter lets gorilla's access-log middleware write through the
// daemon's own log writer.
type logAdapter struct {
	log logwriter.Writer
}

func (a logAdapter) Write(p []byte) (int, error) {
	a.log.WriteEntry(logwriter.LevelDebug, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Server is the operational HTTP surface: /metrics and /healthz. Its
// failure is non-fatal; the ingest loop runs with or without it.
type Server struct {
	log      logwriter.Writer
	internal *http.Server
}

// NewServer builds a Server bound to listenAddress. An empty address
// disables the listener; NewServer then returns nil and callers skip Start.
func NewServer(log logwriter.Writer, listenAddress string) *Server {
	if listenAddress == "" {
		return nil
	}
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	handler := handlers.RecoveryHandler()(
		handlers.CombinedLoggingHandler(logAdapter{log: log}, router))

	return &Server{
		log: log,
		internal: &http.Server{
			Addr:         listenAddress,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start serves on its own goroutine. A listener failure is logged at error
// and the daemon carries on without the metrics surface.
func (s *Server) Start() {
	go func() {
		if err := s.internal.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logwriter.ErrorAnnotated(s.log, "Metrics listener failed", s.internal.Addr, err)
		}
	}()
}

// Shutdown stops the listener, waiting up to the context deadline for
// in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) {
	s.internal.Shutdown(ctx)
}

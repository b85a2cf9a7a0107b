package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/health"
)

// StartServer serves /metrics and, when checker is non-nil, the liveness and
// readiness probes. The returned function shuts the server down.
func StartServer(port int, m *Metrics, checker *health.Checker) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if checker != nil {
		mux.HandleFunc("/health/live", checker.LiveHandler())
		mux.HandleFunc("/health/ready", checker.ReadyHandler())
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>Ranking Evaluation Metrics</h1><p><a href="/metrics">/metrics</a></p></body></html>`)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}

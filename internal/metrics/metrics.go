// Package metrics exposes dictation session counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the whispa collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Sessions             *prometheus.CounterVec
	AudioSeconds         prometheus.Histogram
	TranscriptionSeconds prometheus.Histogram
	TypedCharacters      prometheus.Counter
}

// New registers the collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whispa_sessions_total",
			Help: "Dictation sessions by outcome",
		}, []string{"outcome"}),
		AudioSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "whispa_audio_seconds",
			Help:    "Captured audio duration per session",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		TranscriptionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "whispa_transcription_seconds",
			Help:    "Transcription request latency",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		TypedCharacters: factory.NewCounter(prometheus.CounterOpts{
			Name: "whispa_typed_characters_total",
			Help: "Characters emitted into the focused application",
		}),
	}
}

// ObserveSession records one finished session. Zero durations are not observed.
func (m *Metrics) ObserveSession(outcome string, audio time.Duration, transcription time.Duration, typed int) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(outcome).Inc()
	if audio > 0 {
		m.AudioSeconds.Observe(audio.Seconds())
	}
	if transcription > 0 {
		m.TranscriptionSeconds.Observe(transcription.Seconds())
	}
	if typed > 0 {
		m.TypedCharacters.Add(float64(typed))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on listen until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, listen string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", listen, err)
	}
	return m.serve(ctx, listener, logger)
}

func (m *Metrics) serve(ctx context.Context, listener net.Listener, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("metrics endpoint listening", "addr", listener.Addr().String())
	}
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveSession(t *testing.T) {
	m := New()

	m.ObserveSession("typed", 2*time.Second, 300*time.Millisecond, 11)
	m.ObserveSession("silence", time.Second, 0, 0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues("typed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues("silence")))
	require.Equal(t, 11.0, testutil.ToFloat64(m.TypedCharacters))
	require.Equal(t, 2, testutil.CollectAndCount(m.Sessions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSession("typed", time.Second, time.Second, 1)
}

func TestServeExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveSession("empty", time.Second, 100*time.Millisecond, 0)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.serve(ctx, listener, nil) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `whispa_sessions_total{outcome="empty"} 1`)
	require.Contains(t, string(body), "whispa_transcription_seconds_count 1")

	cancel()
	require.NoError(t, <-done)
}

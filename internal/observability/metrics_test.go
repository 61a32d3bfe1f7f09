package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/macroctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(connections.WithLabelValues(OutcomeOK))
	RecordConnection(OutcomeOK)
	if got := testutil.ToFloat64(connections.WithLabelValues(OutcomeOK)); got != before+1 {
		t.Fatalf("connections ok = %v, want %v", got, before+1)
	}

	reqBefore := testutil.ToFloat64(requests.WithLabelValues("Generate", "output"))
	RecordRequest("Generate", "output")
	if got := testutil.ToFloat64(requests.WithLabelValues("Generate", "output")); got != reqBefore+1 {
		t.Fatalf("requests = %v, want %v", got, reqBefore+1)
	}

	release := TrackActive()
	if got := testutil.ToFloat64(activeConnections); got < 1 {
		t.Fatalf("active connections = %v, want >= 1", got)
	}
	release()

	RecordGenerate("server", 12*time.Millisecond)
}

func TestServeMetricsExposesCounters(t *testing.T) {
	testlog.Start(t)
	RecordConnection(OutcomeError)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeMetrics(ctx, ln, zerolog.Nop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "macroctl_transport_connections_total") {
		t.Fatalf("metrics body missing connections counter")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve metrics: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("metrics server did not stop")
	}
}

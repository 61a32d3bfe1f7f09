package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/macroctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRouterHealthAndRequestMetrics(t *testing.T) {
	testlog.Start(t)
	var logs bytes.Buffer
	r := Router(zerolog.New(&logs).Level(zerolog.DebugLevel))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/health", "200"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("health body = %v", body)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/health", "200")); got != before+1 {
		t.Fatalf("http requests = %v, want %v", got, before+1)
	}

	missBefore := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope/123", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")); got != missBefore+1 {
		t.Fatalf("unmatched requests = %v, want %v", got, missBefore+1)
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) || !strings.Contains(logs.String(), `"path":"unmatched"`) {
		t.Fatalf("404 should log at warn with the unmatched route: %s", logs.String())
	}
}

package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/evyataryagoni/geoip-service/internal/apperr"
	"github.com/evyataryagoni/geoip-service/internal/handler"
	"github.com/evyataryagoni/geoip-service/internal/limiter"
	"github.com/evyataryagoni/geoip-service/internal/logger"
	"github.com/evyataryagoni/geoip-service/internal/metrics"
	"github.com/evyataryagoni/geoip-service/internal/models"
	"github.com/evyataryagoni/geoip-service/internal/service"
	"github.com/evyataryagoni/geoip-service/internal/store"
)

func newTestServer(t *testing.T, lim limiter.Limiter) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	log := logger.Nop()

	svc := service.NewGeoService(store.NewMockStore(), m, log)
	h := handler.NewGeoHandler(svc, apperr.NewTranslator(log))

	srv := httptest.NewServer(SetupRouter(Options{
		Handler:  h,
		Limiter:  lim,
		Metrics:  m,
		Logger:   log,
		Gatherer: reg,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

// TestRouter_Lookup tests the lookup route end to end
func TestRouter_Lookup(t *testing.T) {
	srv := newTestServer(t, limiter.NewMockLimiter(true))

	resp, body := get(t, srv.URL+"/?ip=66.249.68.102")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var location models.GeoLocation
	if err := json.Unmarshal([]byte(body), &location); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	expected := models.GeoLocation{Lat: "37.4", Lng: "-122.1", Country: "US", City: "Mountain View"}
	if location != expected {
		t.Errorf("expected %+v, got %+v", expected, location)
	}
}

// TestRouter_ErrorEnvelope tests that failures are rendered as envelopes
func TestRouter_ErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, limiter.NewMockLimiter(true))

	resp, body := get(t, srv.URL+"/?ip=tytytytytyty")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}

	var errResp models.ErrorResponse
	if err := json.Unmarshal([]byte(body), &errResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if errResp.Detail != apperr.MsgInvalidIP || errResp.Source.Pointer != "/?ip=tytytytytyty" {
		t.Errorf("unexpected envelope: %+v", errResp)
	}
}

// TestRouter_RateLimited tests that only the lookup route is limited
func TestRouter_RateLimited(t *testing.T) {
	srv := newTestServer(t, limiter.NewMockLimiter(false))

	resp, _ := get(t, srv.URL+"/?ip=66.249.68.102")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", resp.StatusCode)
	}

	resp, body := get(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK || body != "OK" {
		t.Errorf("expected health to bypass the limiter, got %d %q", resp.StatusCode, body)
	}
}

// TestRouter_RealIP tests that proxy headers identify the client
func TestRouter_RealIP(t *testing.T) {
	lim := limiter.NewMockLimiter(true)
	srv := newTestServer(t, lim)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/?ip=8.8.8.8", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	calls := lim.Calls()
	if len(calls) != 1 || calls[0] != "203.0.113.7" {
		t.Errorf("expected limiter key 203.0.113.7, got %v", calls)
	}
}

// TestRouter_Health tests the health endpoint
func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, limiter.NewMockLimiter(true))

	resp, body := get(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if body != "OK" {
		t.Errorf("expected body OK, got %q", body)
	}
}

// TestRouter_Metrics tests that service metrics are exposed
func TestRouter_Metrics(t *testing.T) {
	srv := newTestServer(t, limiter.NewMockLimiter(true))

	get(t, srv.URL+"/?ip=66.249.68.102")
	resp, body := get(t, srv.URL+"/metrics")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	for _, name := range []string{
		`geo_lookups_total{result="success"} 1`,
		`http_requests_total{endpoint="/",method="GET",status="200"} 1`,
		`datastore_queries_total{datastore="mock",status="ok"} 1`,
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected metrics output to contain %s", name)
		}
	}
}

// TestRouter_Swagger tests that the API description is served
func TestRouter_Swagger(t *testing.T) {
	srv := newTestServer(t, limiter.NewMockLimiter(true))

	resp, body := get(t, srv.URL+"/swagger/doc.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/"]; !ok {
		t.Errorf("expected / in swagger paths, got %v", paths)
	}
}

// TestRouter_UnknownRoute tests chi's default not found
func TestRouter_UnknownRoute(t *testing.T) {
	srv := newTestServer(t, limiter.NewMockLimiter(true))

	resp, _ := get(t, srv.URL+"/v1/find-country?ip=8.8.8.8")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.StatusCode)
	}
}

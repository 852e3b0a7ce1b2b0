package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/evyataryagoni/geoip-service/internal/limiter"
	"github.com/evyataryagoni/geoip-service/internal/metrics"
	"github.com/evyataryagoni/geoip-service/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})
}

// TestRateLimitMiddleware_Allowed tests request allowed
func TestRateLimitMiddleware_Allowed(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)
	handler := RateLimitMiddleware(mockLimiter, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/?ip=8.8.8.8", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "success" {
		t.Errorf("expected body 'success', got '%s'", rec.Body.String())
	}
}

// TestRateLimitMiddleware_RateLimited tests the 429 envelope
func TestRateLimitMiddleware_RateLimited(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(false)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	nextCalled := false
	handler := RateLimitMiddleware(mockLimiter, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/?ip=8.8.8.8", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if nextCalled {
		t.Error("expected next handler NOT to be called")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var errResp models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	expected := models.ErrorResponse{
		Status: http.StatusTooManyRequests,
		Title:  "Too Many Requests",
		Detail: MsgRateLimited,
		Source: models.ErrorPointer{Pointer: "/?ip=8.8.8.8"},
	}
	if errResp != expected {
		t.Errorf("expected %+v, got %+v", expected, errResp)
	}

	if got := testutil.ToFloat64(m.RateLimitedTotal); got != 1 {
		t.Errorf("expected 1 rate limited request, got %v", got)
	}
}

// TestRateLimitMiddleware_ClientKey tests how clients are identified
func TestRateLimitMiddleware_ClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{"IPv4 with port", "192.168.1.1:12345", "192.168.1.1"},
		{"IPv6 with port", "[2001:db8::1]:8080", "2001:db8::1"},
		{"address set by RealIP", "10.0.0.1", "10.0.0.1"},
		{"IPv6 set by RealIP", "2001:db8::2", "2001:db8::2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLimiter := limiter.NewMockLimiter(true)
			handler := RateLimitMiddleware(mockLimiter, nil)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			handler.ServeHTTP(httptest.NewRecorder(), req)

			calls := mockLimiter.Calls()
			if len(calls) != 1 {
				t.Fatalf("expected 1 limiter call, got %d", len(calls))
			}
			if calls[0] != tt.expected {
				t.Errorf("expected key %s, limiter called with %s", tt.expected, calls[0])
			}
		})
	}
}

// TestRateLimitMiddleware_MixedAllowDeny tests both allowed and denied requests
func TestRateLimitMiddleware_MixedAllowDeny(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)
	handler := RateLimitMiddleware(mockLimiter, nil)(okHandler())

	codes := []int{}
	for _, allow := range []bool{true, false, true} {
		mockLimiter.SetAllow(allow)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	expected := []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK}
	for i := range expected {
		if codes[i] != expected[i] {
			t.Errorf("request %d: expected %d, got %d", i+1, expected[i], codes[i])
		}
	}
}

// TestRateLimitMiddleware_PreservesNextHandlerResponse tests that allowed requests preserve response
func TestRateLimitMiddleware_PreservesNextHandlerResponse(t *testing.T) {
	mockLimiter := limiter.NewMockLimiter(true)
	handler := RateLimitMiddleware(mockLimiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom-Header", "test-value")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("custom response"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if rec.Header().Get("X-Custom-Header") != "test-value" {
		t.Errorf("expected custom header to be preserved")
	}
	if rec.Body.String() != "custom response" {
		t.Errorf("expected custom response body to be preserved")
	}
}

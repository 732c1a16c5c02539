package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/controllernode/versions/internal/handler"
	"github.com/controllernode/versions/internal/ratelimit"
	"github.com/controllernode/versions/internal/release"
)

const versionsPath = "/_functions/softwareversions"

var revisionD = release.Manifest{
	Controller: release.Firmware{Version: "21"},
	Node:       release.Firmware{Version: "21"},
}

func testRouter(t *testing.T, limiter *ratelimit.Limiter, opts RouterOptions) http.Handler {
	t.Helper()

	h, err := handler.New(handler.Dependencies{Manifest: revisionD})
	if err != nil {
		t.Fatalf("creating handler: %v", err)
	}
	if opts.VersionsPath == "" {
		opts.VersionsPath = versionsPath
	}
	return NewRouter(h, limiter, opts)
}

func do(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.APIErrorResponse {
	t.Helper()
	var resp handler.APIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, w.Body.String())
	}
	return resp
}

func TestRouter_GetSoftwareVersions(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{})

	w := do(t, router, http.MethodGet, versionsPath+"?anything=ignored")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", got)
	}
	want := `{"controller":{"version":"21","firmwareUrl":""},"node":{"version":"21","firmwareUrl":""}}`
	if w.Body.String() != want {
		t.Errorf("unexpected body\n got: %s\nwant: %s", w.Body.String(), want)
	}
}

func TestRouter_CustomVersionsPath(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{VersionsPath: "/api/firmware"})

	if w := do(t, router, http.MethodGet, "/api/firmware"); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 on custom path, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, versionsPath); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on default path, got %d", w.Code)
	}
}

func TestRouter_Head(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{})

	w := do(t, router, http.MethodHead, versionsPath)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected no body for HEAD, got %q", w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", got)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := do(t, router, method, versionsPath)

			if w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("expected status 405, got %d", w.Code)
			}
			if got := w.Header().Get("Allow"); got != "GET, HEAD" {
				t.Errorf("expected Allow 'GET, HEAD', got %q", got)
			}
			if resp := decodeError(t, w); resp.Error.Code != handler.ErrCodeMethodNotAllowed {
				t.Errorf("expected code %s, got %s", handler.ErrCodeMethodNotAllowed, resp.Error.Code)
			}
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{})

	w := do(t, router, http.MethodGet, "/_functions/other")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Error.Code != handler.ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", handler.ErrCodeNotFound, resp.Error.Code)
	}
}

func TestRouter_HealthAndServerInfo(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{})

	if w := do(t, router, http.MethodGet, "/health"); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", w.Code, w.Body.String())
	}

	w := do(t, router, http.MethodGet, "/api/server-info")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var info handler.ServerInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("server-info is not valid JSON: %v", err)
	}
	if info.Version == "" {
		t.Error("expected a non-empty build version")
	}
}

func TestRouter_RequestID(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{})

	w := do(t, router, http.MethodGet, versionsPath)
	if id := w.Header().Get(RequestIDHeader); len(id) != 26 {
		t.Fatalf("expected generated ULID request id, got %q", id)
	}

	r := httptest.NewRequest(http.MethodGet, versionsPath, nil)
	r.Header.Set(RequestIDHeader, "client-supplied")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if id := w.Header().Get(RequestIDHeader); id != "client-supplied" {
		t.Fatalf("expected client request id echoed, got %q", id)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(60, 2, time.Minute)
	router := testRouter(t, limiter, RouterOptions{})

	for i := range 2 {
		if w := do(t, router, http.MethodGet, versionsPath); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, w.Code)
		}
	}

	w := do(t, router, http.MethodGet, versionsPath)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Error.Code != handler.ErrCodeRateLimited {
		t.Errorf("expected code %s, got %s", handler.ErrCodeRateLimited, resp.Error.Code)
	}

	// Health is outside the limited group
	if w := do(t, router, http.MethodGet, "/health"); w.Code != http.StatusOK {
		t.Fatalf("expected health to bypass the limiter, got %d", w.Code)
	}
}

func TestRouter_RateLimitUsesRealIP(t *testing.T) {
	limiter := ratelimit.NewLimiter(60, 1, time.Minute)
	router := testRouter(t, limiter, RouterOptions{})

	get := func(realIP string) int {
		r := httptest.NewRequest(http.MethodGet, versionsPath, nil)
		r.Header.Set("X-Real-IP", realIP)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w.Code
	}

	if code := get("198.51.100.1"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := get("198.51.100.2"); code != http.StatusOK {
		t.Fatalf("expected a separate bucket per client IP, got %d", code)
	}
	if code := get("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for repeated client IP, got %d", code)
	}
}

func TestRouter_CORS(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{AllowedOrigins: []string{"https://app.example.com"}})

	r := httptest.NewRequest(http.MethodGet, versionsPath, nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected CORS allow origin header, got %q", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), RequestIDHeader) {
		t.Errorf("expected %s to be exposed, got %q", RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestRouter_Tracing(t *testing.T) {
	router := testRouter(t, nil, RouterOptions{Tracing: true})

	if w := do(t, router, http.MethodGet, versionsPath); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 with tracing enabled, got %d", w.Code)
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if resp := decodeError(t, w); resp.Error.Code != handler.ErrCodeInternalError {
		t.Errorf("expected code %s, got %s", handler.ErrCodeInternalError, resp.Error.Code)
	}
}

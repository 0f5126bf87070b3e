package httptransport_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/docgate/internal/gate"
	"github.com/ErlanBelekov/docgate/internal/session"
	httptransport "github.com/ErlanBelekov/docgate/internal/transport/http"
)

func TestEdgeRouter(t *testing.T) {
	var upstreamHits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("request id not forwarded upstream")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("parse upstream: %v", err)
	}
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	g := gate.New(secret, nil).WithClock(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	edge := httptransport.NewEdgeRouter(logger, g, u)

	send := func(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-ID", "edge-1")
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		edge.ServeHTTP(w, req)
		return w
	}

	if w := send("/search", nil); w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/about" {
		t.Errorf("protected without cookie: status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	if upstreamHits.Load() != 0 {
		t.Fatalf("redirected request reached upstream")
	}

	if w := send("/about", nil); w.Code != http.StatusOK || w.Header().Get("X-Upstream-Path") != "/about" {
		t.Errorf("public path not proxied: status = %d", w.Code)
	}

	valid := &http.Cookie{Name: session.CookieName, Value: session.Sign(secret, "user-1", now)}
	if w := send("/search", valid); w.Code != http.StatusOK || w.Header().Get("X-Upstream-Path") != "/search" {
		t.Errorf("valid session not proxied: status = %d", w.Code)
	}
	if n := upstreamHits.Load(); n != 2 {
		t.Errorf("upstream hits = %d, want 2", n)
	}
}

func TestEdgeRouter_UpstreamDown(t *testing.T) {
	u, _ := url.Parse("http://127.0.0.1:1")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	edge := httptransport.NewEdgeRouter(logger, gate.New(secret, nil), u)

	w := httptest.NewRecorder()
	edge.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/about", nil))
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestEdgeRouter_DotSegmentsDoNotReachProtectedRoutes(t *testing.T) {
	var upstreamHits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		if path.Clean(r.URL.Path) == "/api/me" {
			_, _ = io.WriteString(w, "PROTECTED")
		}
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("parse upstream: %v", err)
	}
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	g := gate.New(secret, nil).WithClock(func() time.Time { return now })
	edge := httptransport.NewEdgeRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), g, u)

	paths := []string{"/about/../api/me", "/static/%2e%2e/api/me", "/verify/../../api/me"}
	for _, p := range paths {
		w := httptest.NewRecorder()
		edge.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusTemporaryRedirect {
			t.Errorf("%s without cookie: status = %d, want 307", p, w.Code)
		}
		if strings.Contains(w.Body.String(), "PROTECTED") {
			t.Errorf("%s without cookie served the protected body", p)
		}
	}
	if n := upstreamHits.Load(); n != 0 {
		t.Fatalf("upstream hits = %d, want 0", n)
	}

	valid := &http.Cookie{Name: session.CookieName, Value: session.Sign(secret, "user-1", now)}
	req := httptest.NewRequest(http.MethodGet, "/about/../api/me", nil)
	req.AddCookie(valid)
	w := httptest.NewRecorder()
	edge.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with session: status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-Upstream-Path"); got != "/api/me" {
		t.Errorf("upstream path = %q, want the cleaned /api/me", got)
	}
}

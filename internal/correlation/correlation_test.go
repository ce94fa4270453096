package correlation

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareMintsID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("no correlation ID in context")
	}
	if got := rec.Header().Get(HeaderName); got != seen {
		t.Fatalf("response header %q != context ID %q", got, seen)
	}
}

func TestMiddlewarePropagatesCallerID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderName, "caller-id-123")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "caller-id-123" {
		t.Fatalf("context ID = %q, want caller's", seen)
	}
}

func TestGetIDEmptyContext(t *testing.T) {
	if got := GetID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Fatalf("GetID on bare context = %q", got)
	}
}

package tenancy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFromContextDefault(t *testing.T) {
	if got := FromContext(context.Background()); got != DefaultTenant {
		t.Fatalf("got %q, want %q", got, DefaultTenant)
	}
}

func TestWithTenantRoundTrip(t *testing.T) {
	ctx := WithTenant(context.Background(), "acme-corp")
	if got := FromContext(ctx); got != "acme-corp" {
		t.Fatalf("got %q", got)
	}
}

func TestRequireNoTenant(t *testing.T) {
	if _, err := Require(context.Background()); err != ErrNoTenant {
		t.Fatalf("err = %v, want ErrNoTenant", err)
	}
}

func TestLookupUnset(t *testing.T) {
	if v, ok := Lookup(context.Background()); ok || v != "" {
		t.Fatalf("Lookup = %q, %v", v, ok)
	}
}

func TestLookupSet(t *testing.T) {
	ctx := WithTenant(context.Background(), "acme-corp")
	v, ok := Lookup(ctx)
	if !ok || v != "acme-corp" {
		t.Fatalf("Lookup = %q, %v", v, ok)
	}
}

func TestRequireWithTenant(t *testing.T) {
	ctx := WithTenant(context.Background(), "acme-corp")
	got, err := Require(ctx)
	if err != nil || got != "acme-corp" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestMiddlewareDefaultsWhenHeaderAbsent(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != DefaultTenant {
		t.Fatalf("got %q, want %q", seen, DefaultTenant)
	}
}

func TestMiddlewareReadsHeader(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderName, "acme-corp")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "acme-corp" {
		t.Fatalf("got %q", seen)
	}
}

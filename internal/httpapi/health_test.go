package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/health/live")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("live status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/health/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/description")
	if err != nil {
		t.Fatalf("description: %v", err)
	}
	var desc descriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		t.Fatalf("decode description: %v", err)
	}
	resp.Body.Close()
	if len(desc.Profiles) != 1 {
		t.Fatalf("expected exactly one profile, got %d", len(desc.Profiles))
	}

	resp, err = http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var combined combinedHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&combined); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if combined.Status != "ready" {
		t.Fatalf("expected ready status, got %q", combined.Status)
	}
}

func TestHealthReadyReflectsReadyzHook(t *testing.T) {
	server, deps := newTestServer()
	defer server.Close()
	deps.Readyz = func() error { return errors.New("database unreachable") }
	server.Config.Handler = NewRouter(deps)

	resp, err := http.Get(server.URL + "/health/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}

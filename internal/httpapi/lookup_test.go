package httpapi

import (
	"bytes"
	"net/http"
	"testing"
)

func TestLookupShellsAndSubmodels(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	shellID := "https://titan-aas.example/shells/lookup-1"
	resp, err := http.Post(server.URL+"/shells/", "application/json", bytes.NewReader(marshalJSON(t, testShell(shellID))))
	if err != nil {
		t.Fatalf("create shell: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/lookup/shells")
	if err != nil {
		t.Fatalf("lookup shells: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup shells status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/lookup/submodels")
	if err != nil {
		t.Fatalf("lookup submodels: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup submodels status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/titan-aas/titan-aas/internal/codec"
)

func marshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func testShell(id string) map[string]interface{} {
	return map[string]interface{}{
		"id": id,
		"assetInformation": map[string]interface{}{
			"assetKind": "Instance",
		},
	}
}

func TestShellCRUD(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	shellID := "https://titan-aas.example/shells/crud-1"
	idB64 := codec.Encode(shellID)

	// Create.
	resp, err := http.Post(server.URL+"/shells/", "application/json", bytes.NewReader(marshalJSON(t, testShell(shellID))))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	etag := resp.Header.Get("ETag")
	resp.Body.Close()
	if etag == "" {
		t.Fatalf("expected ETag header on create")
	}

	// Duplicate create conflicts.
	resp, err = http.Post(server.URL+"/shells/", "application/json", bytes.NewReader(marshalJSON(t, testShell(shellID))))
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Get.
	resp, err = http.Get(server.URL + "/shells/" + idB64)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode get: %v", err)
	}
	resp.Body.Close()
	if got["id"] != shellID {
		t.Fatalf("get id = %v, want %v", got["id"], shellID)
	}

	// Conditional get: If-None-Match returns 304.
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/shells/"+idB64, nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional get: %v", err)
	}
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional get status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List.
	resp, err = http.Get(server.URL + "/shells/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var page listPageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(page.Result) != 1 {
		t.Fatalf("list result length = %d, want 1", len(page.Result))
	}

	// Replace.
	updated := testShell(shellID)
	updated["idShort"] = "UpdatedShell"
	req, _ = http.NewRequest(http.MethodPut, server.URL+"/shells/"+idB64, bytes.NewReader(marshalJSON(t, updated)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("replace status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete.
	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/shells/"+idB64, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/shells/" + idB64)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestShellReplaceIDMismatchRejected(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	shellID := "https://titan-aas.example/shells/mismatch-1"
	idB64 := codec.Encode(shellID)

	resp, err := http.Post(server.URL+"/shells/", "application/json", bytes.NewReader(marshalJSON(t, testShell(shellID))))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resp.Body.Close()

	other := testShell("https://titan-aas.example/shells/different")
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/shells/"+idB64, bytes.NewReader(marshalJSON(t, other)))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("replace mismatch status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

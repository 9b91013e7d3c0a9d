package httpapi

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/titan-aas/titan-aas/internal/blobstore"
)

func TestBlobStream(t *testing.T) {
	server, deps := newTestServer()
	defer server.Close()

	backend := blobstore.NewLocalBackend(t.TempDir(), 0, 1<<20)
	metaStore := newMemMetadataStore()
	deps.Blobs = backend
	deps.BlobMeta = metaStore
	server.Config.Handler = NewRouter(deps)

	content := []byte("calibration-certificate-bytes")
	meta, err := backend.Store(context.Background(), "sm-1", "Certificate", content, "application/octet-stream", "cert.bin")
	if err != nil {
		t.Fatalf("store blob: %v", err)
	}
	if err := metaStore.Put(context.Background(), meta); err != nil {
		t.Fatalf("put metadata: %v", err)
	}

	resp, err := http.Get(server.URL + "/blobs/" + meta.ID)
	if err != nil {
		t.Fatalf("stream blob: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status = %d", resp.StatusCode)
	}
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read blob body: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("blob body = %q, want %q", got, content)
	}
}

func TestBlobStreamNotFound(t *testing.T) {
	server, deps := newTestServer()
	defer server.Close()
	deps.Blobs = blobstore.NewLocalBackend(t.TempDir(), 0, 1<<20)
	deps.BlobMeta = newMemMetadataStore()
	server.Config.Handler = NewRouter(deps)

	resp, err := http.Get(server.URL + "/blobs/does-not-exist")
	if err != nil {
		t.Fatalf("stream missing blob: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

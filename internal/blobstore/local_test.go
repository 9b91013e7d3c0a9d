package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalBackendStoreRetrieveDelete(t *testing.T) {
	dir := t.TempDir()
	backend := NewLocalBackend(dir, 1024, 8*1024*1024)
	ctx := context.Background()

	content := []byte("hello world")
	meta, err := backend.Store(ctx, "sm-1", "photo", content, "text/plain", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if meta.SizeBytes != int64(len(content)) {
		t.Fatalf("SizeBytes = %d", meta.SizeBytes)
	}
	if !strings.HasPrefix(meta.StorageURI, dir) {
		t.Fatalf("StorageURI %q not under %q", meta.StorageURI, dir)
	}

	got, err := backend.Retrieve(ctx, meta)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q", got)
	}

	exists, err := backend.Exists(ctx, meta)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}

	if err := backend.Delete(ctx, meta); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, err = backend.Exists(ctx, meta)
	if err != nil || exists {
		t.Fatalf("Exists after delete = %v, %v", exists, err)
	}
}

func TestLocalBackendStream(t *testing.T) {
	dir := t.TempDir()
	backend := NewLocalBackend(dir, 1024, 8*1024*1024)
	ctx := context.Background()

	meta, err := backend.Store(ctx, "sm-1", "doc", []byte("streamed content"), "text/plain", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	rc, err := backend.Stream(ctx, meta)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "streamed content" {
		t.Fatalf("got %q", got)
	}
}

func TestLocalBackendShouldExternalize(t *testing.T) {
	backend := NewLocalBackend(t.TempDir(), 10, 8*1024*1024)
	if backend.ShouldExternalize([]byte("short"), "text/plain") {
		t.Fatal("5 bytes should not externalize against threshold 10")
	}
	if !backend.ShouldExternalize([]byte("this is longer than ten bytes"), "text/plain") {
		t.Fatal("long content should externalize")
	}
}

func TestLocalBackendDeletePrunesEmptyDirs(t *testing.T) {
	dir := t.TempDir()
	backend := NewLocalBackend(dir, 1024, 8*1024*1024)
	ctx := context.Background()

	meta, err := backend.Store(ctx, "sm-1", "photo", []byte("x"), "text/plain", "")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := backend.Delete(ctx, meta); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(meta.StorageURI)); !os.IsNotExist(err) {
		t.Fatalf("expected parent directory pruned, stat err = %v", err)
	}
}

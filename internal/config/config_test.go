package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TITAN_ENV", "testing")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Env != Testing {
		t.Fatalf("expected testing environment, got %s", cfg.Env)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default HTTP_ADDR :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.BlobStorageType != BlobBackendLocal {
		t.Errorf("expected default blob backend local, got %s", cfg.BlobStorageType)
	}
	if cfg.BlobInlineThreshold != 64*1024 {
		t.Errorf("expected default inline threshold 65536, got %d", cfg.BlobInlineThreshold)
	}
	if !cfg.RateLimitEnabled {
		t.Errorf("expected rate limiting enabled by default")
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("TITAN_ENV", "bogus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid TITAN_ENV")
	}
}

func TestValidateProductionRequiresDatabaseURL(t *testing.T) {
	cfg := &Config{Env: Production, RateLimitEnabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing DATABASE_URL in production")
	}
}

func TestValidateBlobBackendRequiresBucket(t *testing.T) {
	cfg := &Config{Env: Development, BlobStorageType: BlobBackendS3}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing BLOB_S3_BUCKET")
	}

	cfg.BlobS3Bucket = "my-bucket"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error once bucket is set: %v", err)
	}
}

func TestEnvironmentPredicates(t *testing.T) {
	cfg := &Config{Env: Production}
	if !cfg.IsProduction() || cfg.IsDevelopment() || cfg.IsTesting() {
		t.Fatalf("environment predicates mismatch for %s", cfg.Env)
	}
}

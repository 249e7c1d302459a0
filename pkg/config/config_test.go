package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/dupscan/dupscan/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}
	if cfg.Minhash.ShingleSize != DefaultShingleSize {
		t.Errorf("ShingleSize = %d, want %d", cfg.Minhash.ShingleSize, DefaultShingleSize)
	}
	if cfg.Minhash.SignatureLength != DefaultSignatureLength {
		t.Errorf("SignatureLength = %d, want %d", cfg.Minhash.SignatureLength, DefaultSignatureLength)
	}
	if cfg.Minhash.Modulus != DefaultModulus {
		t.Errorf("Modulus = %d, want %d", cfg.Minhash.Modulus, DefaultModulus)
	}
	if cfg.Scan.SimilarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("SimilarityThreshold = %v, want %v", cfg.Scan.SimilarityThreshold, DefaultSimilarityThreshold)
	}
	if cfg.Kafka.Topics.DocumentIngest == "" || cfg.Kafka.Topics.MatchEvents == "" {
		t.Error("default Kafka topics missing")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9999
minhash:
  shingleSize: 5
  signatureLength: 128
scan:
  similarityThreshold: 0.8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Minhash.ShingleSize != 5 || cfg.Minhash.SignatureLength != 128 {
		t.Errorf("minhash config = %+v", cfg.Minhash)
	}
	if cfg.Scan.SimilarityThreshold != 0.8 {
		t.Errorf("SimilarityThreshold = %v, want 0.8", cfg.Scan.SimilarityThreshold)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Postgres.Host = %q, want default", cfg.Postgres.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DS_MINHASH_SHINGLE_SIZE", "4")
	t.Setenv("DS_SCAN_THRESHOLD", "0.75")
	t.Setenv("DS_POSTGRES_HOST", "db.internal")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Minhash.ShingleSize != 4 {
		t.Errorf("ShingleSize = %d, want 4", cfg.Minhash.ShingleSize)
	}
	if cfg.Scan.SimilarityThreshold != 0.75 {
		t.Errorf("SimilarityThreshold = %v, want 0.75", cfg.Scan.SimilarityThreshold)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Postgres.Host)
	}
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"zero shingle size":     func(c *Config) { c.Minhash.ShingleSize = 0 },
		"zero signature length": func(c *Config) { c.Minhash.SignatureLength = 0 },
		"modulus too small":     func(c *Config) { c.Minhash.Modulus = MaxShingleID },
		"threshold above 1":     func(c *Config) { c.Scan.SimilarityThreshold = 1.5 },
		"negative threshold":    func(c *Config) { c.Scan.SimilarityThreshold = -0.1 },
	} {
		cfg := defaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, apperrors.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

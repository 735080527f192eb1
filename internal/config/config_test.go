package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-omr/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("OMR_MODE", "")
	t.Setenv("OMR_WORKERS", "")
	c := config.FromEnv()
	if c.Mode != config.ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("defaults = %+v", c)
	}
	if c.Omr.Profile != "geo_tight_search" || c.Omr.MaxUploadMB != 32 {
		t.Fatalf("omr defaults = %+v", c.Omr)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OMR_MODE", "online")
	t.Setenv("OMR_CORS_ORIGINS_ONLINE", "https://a.example, https://b.example,")
	t.Setenv("OMR_WORKERS", "3")
	t.Setenv("OMR_MIN_CONFIDENCE", "0.35")
	c := config.FromEnv()
	if got := c.CORSOrigins(); len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("origins = %v", got)
	}
	tn := c.Omr.Tuning()
	if tn.Workers != 3 || tn.MinConfidence != 0.35 {
		t.Fatalf("tuning = %+v", tn)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	t.Setenv("OMR_HTTP_ADDR", ":9000")
	t.Setenv("OMR_FILL_THRESHOLD", "0.4")
	for _, k := range []string{"OMR_WORKERS", "OMR_DB_DRIVER", "OMR_ALIGN_PROFILE", "OMR_MAX_UPLOAD_MB", "OMR_LOG_LEVEL", "OMR_MIN_CONFIDENCE"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "omr.yaml")
	yml := `
http_addr: ":7000"
db_driver: postgres
omr:
  profile: actual
  workers: 6
  fill_threshold: 0.5
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	// Set variables win over the file; the file wins over defaults.
	if c.HTTPAddr != ":9000" || c.Omr.FillThreshold != 0.4 {
		t.Fatalf("env did not override file: %+v", c)
	}
	if c.DBDriver != "postgres" || c.Omr.Profile != "actual" || c.Omr.Workers != 6 {
		t.Fatalf("file values lost: %+v", c)
	}
	if c.Omr.MaxUploadMB != 32 || c.LogLevel != "info" {
		t.Fatalf("defaults lost under overlay: %+v", c)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("omr:\n  min_confidence: 4\n"), 0o644)
	if _, err := config.Load(bad); err == nil {
		t.Fatal("out-of-range min_confidence accepted")
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-omr/internal/omr"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `yaml:"mode"`
	HTTPAddr string `yaml:"http_addr"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	ScanBasePath string `yaml:"scan_base_path"` // fs blob store root for captured scans

	// Bearer tokens are required on template uploads when set.
	AuthHMACSecret string `yaml:"auth_hmac_secret"`

	CORSOriginsOnline  []string `yaml:"cors_origins_online"`
	CORSOriginsOffline []string `yaml:"cors_origins_offline"`

	LogFormat string `yaml:"log_format"` // text|json
	LogLevel  string `yaml:"log_level"`

	Omr Omr `yaml:"omr"`
}

// Omr tunes the scan pipeline. Zero values keep the package defaults.
type Omr struct {
	Profile             string  `yaml:"profile"`
	Workers             int     `yaml:"workers"`
	MinConfidence       float64 `yaml:"min_confidence"`
	FillThreshold       float64 `yaml:"fill_threshold"`
	MinAnswerConfidence float64 `yaml:"min_answer_confidence"`
	MaxUploadMB         int     `yaml:"max_upload_mb"`
}

// Tuning maps the scan settings onto pipeline overrides.
func (o Omr) Tuning() omr.Tuning {
	return omr.Tuning{
		Workers:             o.Workers,
		MinConfidence:       o.MinConfidence,
		FillThreshold:       o.FillThreshold,
		MinAnswerConfidence: o.MinAnswerConfidence,
	}
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Mode:               ModeOffline,
		HTTPAddr:           ":8080",
		DBDriver:           "sqlite",
		ScanBasePath:       "./data/scans",
		CORSOriginsOnline:  []string{"https://lms.mindengage.ai"},
		CORSOriginsOffline: []string{"http://localhost:3000"},
		LogFormat:          "text",
		LogLevel:           "info",
		Omr: Omr{
			Profile:     "geo_tight_search",
			MaxUploadMB: 32,
		},
	}
}

// FromEnv returns Defaults overridden by the OMR_* variables that are set.
func FromEnv() Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// Load resolves the configuration in order: Defaults, then the YAML file at
// path (if any), then OMR_* variables that are set. Empty or unparsable
// variables count as unset.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OMR_MODE"); v != "" {
		c.Mode = Mode(v)
	}
	envStr(&c.HTTPAddr, "OMR_HTTP_ADDR")
	envStr(&c.DBDriver, "OMR_DB_DRIVER")
	envStr(&c.DBDSN, "OMR_DB_DSN")
	envStr(&c.ScanBasePath, "OMR_SCAN_BASE_PATH")
	envStr(&c.AuthHMACSecret, "OMR_AUTH_HMAC_SECRET")
	envCSV(&c.CORSOriginsOnline, "OMR_CORS_ORIGINS_ONLINE")
	envCSV(&c.CORSOriginsOffline, "OMR_CORS_ORIGINS_OFFLINE")
	envStr(&c.LogFormat, "OMR_LOG_FORMAT")
	envStr(&c.LogLevel, "OMR_LOG_LEVEL")
	envStr(&c.Omr.Profile, "OMR_ALIGN_PROFILE")
	envInt(&c.Omr.Workers, "OMR_WORKERS")
	envFloat(&c.Omr.MinConfidence, "OMR_MIN_CONFIDENCE")
	envFloat(&c.Omr.FillThreshold, "OMR_FILL_THRESHOLD")
	envFloat(&c.Omr.MinAnswerConfidence, "OMR_MIN_ANSWER_CONFIDENCE")
	envInt(&c.Omr.MaxUploadMB, "OMR_MAX_UPLOAD_MB")
}

func (c Config) Validate() error {
	if c.Mode != ModeOffline && c.Mode != ModeOnline {
		return fmt.Errorf("mode must be %q or %q", ModeOffline, ModeOnline)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.Omr.MinConfidence < 0 || c.Omr.MinConfidence > 1 {
		return fmt.Errorf("omr.min_confidence must be in [0,1]")
	}
	if c.Omr.FillThreshold < 0 || c.Omr.FillThreshold > 1 {
		return fmt.Errorf("omr.fill_threshold must be in [0,1]")
	}
	if c.Omr.MaxUploadMB <= 0 {
		return fmt.Errorf("omr.max_upload_mb must be > 0")
	}
	return nil
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envStr(dst *string, k string) {
	if v := os.Getenv(k); v != "" {
		*dst = v
	}
}
func envInt(dst *int, k string) {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		*dst = v
	}
}
func envFloat(dst *float64, k string) {
	if v, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil {
		*dst = v
	}
}
func envCSV(dst *[]string, k string) {
	v := os.Getenv(k)
	if v == "" {
		return
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

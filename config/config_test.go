package config

import (
	"os"
	"strings"
	"testing"
)

// writeTempConfig creates a configuration file with the given content and
// returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `fillflow:
  name: "TestApp"
  version: "1.0"
source:
  connection: rest
  rest:
    url: "http://localhost:9000/fills"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Fillflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Fillflow.Name)
	}
	if cfg.Cache.CapacityHours != 168 {
		t.Errorf("default capacity not applied: %d", cfg.Cache.CapacityHours)
	}
	if cfg.Source.REST.URL != "http://localhost:9000/fills" {
		t.Errorf("unexpected rest url: %s", cfg.Source.REST.URL)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	path := writeTempConfig(t, `fillflow:
  version: "1.0"
source:
  connection: rest
  rest:
    url: "http://localhost:9000/fills"
`)

	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "fillflow.name") {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestLoadConfigUnsupportedConnection(t *testing.T) {
	path := writeTempConfig(t, `fillflow:
  name: "TestApp"
  version: "1.0"
source:
  connection: carrier-pigeon
`)

	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "unsupported source.connection") {
		t.Fatalf("expected connection validation error, got %v", err)
	}
}

func TestLoadConfigBinanceRequiresSymbol(t *testing.T) {
	path := writeTempConfig(t, `fillflow:
  name: "TestApp"
  version: "1.0"
source:
  connection: binance
`)

	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "source.binance.symbol") {
		t.Fatalf("expected symbol validation error, got %v", err)
	}
}

func TestLoadConfigS3EnvOverride(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("S3_BUCKET", "env-bucket")

	path := writeTempConfig(t, `fillflow:
  name: "TestApp"
  version: "1.0"
source:
  connection: s3
  s3:
    bucket: "file-bucket"
    region: "us-east-1"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Source.S3.Bucket != "env-bucket" || cfg.Source.S3.Region != "eu-west-1" {
		t.Errorf("env overrides not applied: %+v", cfg.Source.S3)
	}
	if cfg.Source.S3.AccessKeyID != "env-key" || cfg.Source.S3.SecretAccessKey != "env-secret" {
		t.Errorf("credential overrides not applied")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}

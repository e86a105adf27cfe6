package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:5002/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("RequestTimeout = %v; want no timeout by default", cfg.RequestTimeout)
	}
	if cfg.ShareEnabled() {
		t.Error("share enabled without a bucket")
	}
	if filepath.Base(cfg.CredentialsPath) != "credentials.json" {
		t.Errorf("CredentialsPath = %q", cfg.CredentialsPath)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAWTRAIT_API_BASE_URL", "https://api.pawtrait.example/api/")
	t.Setenv("PAWTRAIT_HTTP_TIMEOUT_SECONDS", "90")
	t.Setenv("PAWTRAIT_CREDENTIALS_PATH", "/tmp/creds.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.pawtrait.example/api" {
		t.Errorf("APIBaseURL = %q; trailing slash must be stripped", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 90*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.CredentialsPath != "/tmp/creds.json" {
		t.Errorf("CredentialsPath = %q", cfg.CredentialsPath)
	}
}

func TestLoad_ShareRequiresFullConfig(t *testing.T) {
	t.Setenv("SHARE_S3_BUCKET", "pawtrait-shares")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a share bucket without region or credentials")
	}

	t.Setenv("SHARE_S3_REGION", "eu-central-1")
	t.Setenv("SHARE_S3_ACCESS_KEY", "ak")
	t.Setenv("SHARE_S3_SECRET_KEY", "sk")
	t.Setenv("SHARE_S3_PUBLIC_BASE_URL", "https://cdn.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.ShareEnabled() {
		t.Error("share not enabled with a full configuration")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "http://fallback"},
		{"api.pawtrait.example", "https://api.pawtrait.example"},
		{"http://localhost:5002/api/", "http://localhost:5002/api"},
	}
	for _, tc := range cases {
		if got := normalizeBaseURL(tc.in, "http://fallback"); got != tc.want {
			t.Errorf("normalizeBaseURL(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

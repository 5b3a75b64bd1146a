package config

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.Dataset != "data/projects.json" {
		t.Errorf("unexpected dataset: %s", cfg.Dataset)
	}
	if cfg.DatasetTTL != 5*time.Minute {
		t.Errorf("unexpected dataset ttl: %s", cfg.DatasetTTL)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("unexpected session ttl: %s", cfg.Session.TTL)
	}
	if cfg.Session.Max != 5000 {
		t.Errorf("unexpected session cap: %d", cfg.Session.Max)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Dev {
		t.Error("dev mode should be off by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := map[string]string{
		"PORT":                          "9000",
		"PORTFOLIO_DATASET":             "gs://bucket/projects.yaml",
		"PORTFOLIO_DEV":                 "true",
		"PORTFOLIO_LOG_LEVEL":           " DEBUG ",
		"PORTFOLIO_SESSION_TTL":         "2m",
		"PORTFOLIO_SESSION_MAX":         "10",
		"PORTFOLIO_SESSION_SIGNING_KEY": strings.Repeat("k", 32),
		"PORTFOLIO_SERVER_IDLE_TIMEOUT": "90s",
	}
	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("expected PORT fallback, got %s", cfg.Addr)
	}
	if cfg.Dataset != "gs://bucket/projects.yaml" || !cfg.Dev || cfg.LogLevel != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Session.TTL != 2*time.Minute || cfg.Session.Max != 10 || cfg.Server.IdleTimeout != 90*time.Second {
		t.Errorf("nested overrides not applied: %+v", cfg)
	}

	env["PORTFOLIO_ADDR"] = "127.0.0.1:7000"
	cfg, err = Load(WithEnvMap(env), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" {
		t.Errorf("explicit addr should win over PORT, got %s", cfg.Addr)
	}
}

func TestLoadEnvMapOverridesSystemEnv(t *testing.T) {
	t.Setenv("PORTFOLIO_DATASET", "from-system.json")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dataset != "from-system.json" {
		t.Errorf("expected system env value, got %s", cfg.Dataset)
	}
	cfg, err = Load(WithEnvMap(map[string]string{"PORTFOLIO_DATASET": "from-map.json"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dataset != "from-map.json" {
		t.Errorf("expected map value, got %s", cfg.Dataset)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PORTFOLIO_DATASET_TTL":         "-1s",
		"PORTFOLIO_SESSION_SIGNING_KEY": "short",
	}))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := strings.Join(verr.Fields(), ",")
	if !strings.Contains(fields, "DatasetTTL") || !strings.Contains(fields, "Session.SigningKey") {
		t.Errorf("unexpected fields: %s", fields)
	}
}

func TestLoadParseError(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvMap(map[string]string{"PORTFOLIO_DEV": "maybe"}))
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestExitfExitsWithCode1(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		Exitf("fatal: %s", "templates missing")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfExitsWithCode1$")
	cmd.Env = append(os.Environ(), "TEST_EXITF_SUBPROCESS=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "fatal: templates missing") {
		t.Fatalf("unexpected output %q", string(out))
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("connect_port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "config.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("connect_port: 6700\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("bot_name: ${GATEKIT_TEST_NAME}\n"), 0600)
	os.Setenv("GATEKIT_TEST_NAME", "nightbot")
	defer os.Unsetenv("GATEKIT_TEST_NAME")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BotName != "nightbot" {
		t.Errorf("bot_name = %q, want %q", cfg.BotName, "nightbot")
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("owner: 12345\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ConnectHost != "127.0.0.1" {
		t.Errorf("connect_host default = %q, want 127.0.0.1", cfg.ConnectHost)
	}
	if cfg.ConnectPort != 6700 {
		t.Errorf("connect_port default = %d, want 6700", cfg.ConnectPort)
	}
	if cfg.WorkQueueLen != 100 {
		t.Errorf("work_queue_len default = %d, want 100", cfg.WorkQueueLen)
	}
	if len(cfg.CommandStart) != 1 || cfg.CommandStart[0] != "/" {
		t.Errorf("command_start default = %v, want [/]", cfg.CommandStart)
	}
	if cfg.Owner != 12345 {
		t.Errorf("owner = %d, want 12345", cfg.Owner)
	}
}

func TestConfig_WorkingTime_Unbounded(t *testing.T) {
	cfg := Default()
	cfg.WorkingTimeSec = 0
	if _, ok := cfg.WorkingTime(); ok {
		t.Error("working_time 0 should be unbounded")
	}
	cfg.WorkingTimeSec = -5
	if _, ok := cfg.WorkingTime(); ok {
		t.Error("negative working_time should be unbounded")
	}
}

func TestConfig_WorkingTime_Bounded(t *testing.T) {
	cfg := Default()
	cfg.WorkingTimeSec = 30
	d, ok := cfg.WorkingTime()
	if !ok {
		t.Fatal("positive working_time should be bounded")
	}
	if d.Seconds() != 30 {
		t.Errorf("working time = %v, want 30s", d)
	}
}

func TestConfig_ConnectURL(t *testing.T) {
	cfg := Default()
	cfg.ConnectHost = "example.test"
	cfg.ConnectPort = 1234
	want := "ws://example.test:1234"
	if got := cfg.ConnectURL(); got != want {
		t.Errorf("ConnectURL() = %q, want %q", got, want)
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := Default()
	cfg.ConnectPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range connect_port")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "chatty"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log_level")
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fileConfig struct {
	Dir      string        `yaml:"dir"`
	MaxFiles int           `yaml:"maxFiles"`
	MaxAge   time.Duration `yaml:"maxAge"`
}

type loggerConfig struct {
	Level   string     `yaml:"level"`
	AppName string     `yaml:"appName"`
	File    fileConfig `yaml:"file"`
}

type appConfig struct {
	Name   string       `yaml:"name"`
	Logger loggerConfig `yaml:"logger"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestConfig_SetGet(t *testing.T) {
	cfg := New()
	cfg.Set("logger.level", "debug")
	cfg.Set("logger.file.maxFiles", 3)
	cfg.Set("name", "demo")

	if v, ok := cfg.Get("logger.level"); !ok || v != "debug" {
		t.Errorf("Get(logger.level) = %v, %v", v, ok)
	}
	if v, _ := cfg.Get("logger.file.maxFiles"); v != 3 {
		t.Errorf("Get(logger.file.maxFiles) = %v", v)
	}
	if !cfg.Has("name") || cfg.Has("logger.console") || cfg.Has("name.first") {
		t.Error("Has() mismatch")
	}

	// 覆盖标量为 map
	cfg.Set("name.first", "x")
	if v, _ := cfg.Get("name.first"); v != "x" {
		t.Errorf("Get(name.first) = %v", v)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{FormatJSON, `{"name": "test", "logger": {"level": "warn"}}`},
		{FormatYAML, "name: test\nlogger:\n  level: warn\n"},
		{FormatTOML, "name = \"test\"\n[logger]\nlevel = \"warn\"\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			cfg := New()
			if err := cfg.LoadBytes([]byte(tt.data), tt.format); err != nil {
				t.Fatalf("LoadBytes() error = %v", err)
			}
			var app appConfig
			if err := cfg.Unmarshal(&app); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if app.Name != "test" || app.Logger.Level != "warn" {
				t.Errorf("got %+v", app)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	cfg := New()
	if err := cfg.LoadBytes([]byte("{"), FormatJSON); err == nil {
		t.Error("expected JSON error")
	}
	if err := cfg.LoadBytes([]byte("a: b"), Format("ini")); err == nil {
		t.Error("expected unsupported format error")
	}
	if _, err := Load(writeFile(t, "config.ini", "a=b")); err == nil {
		t.Error("expected extension error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected missing file error")
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"json": FormatJSON, ".yml": FormatYAML, "YAML": FormatYAML, "toml": FormatTOML} {
		if got, err := ParseFormat(name); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
	if DetectFormat("a/b/applog.yaml") != FormatYAML || DetectFormat("noext") != FormatUnknown {
		t.Error("DetectFormat mismatch")
	}
}

func TestLoad_Layered(t *testing.T) {
	base := writeFile(t, "base.yaml", `
name: demo
logger:
  level: info
  file:
    maxFiles: 10
    maxAge: 1h
`)
	override := writeFile(t, "override.json", `{"logger": {"level": "debug", "file": {"maxAge": "15m"}}}`)

	cfg, err := Load(base, override)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var app appConfig
	if err := cfg.Unmarshal(&app); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if app.Name != "demo" || app.Logger.Level != "debug" {
		t.Errorf("got %+v", app)
	}
	if app.Logger.File.MaxFiles != 10 || app.Logger.File.MaxAge != 15*time.Minute {
		t.Errorf("File = %+v", app.Logger.File)
	}
}

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("TEST_LOG_DIR", "/var/log/demo")
	path := writeFile(t, "config.yaml", `
logger:
  appName: ${TEST_APP_NAME:fallback}
  file:
    dir: ${TEST_LOG_DIR}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var logger loggerConfig
	if err := cfg.UnmarshalKey("logger", &logger); err != nil {
		t.Fatalf("UnmarshalKey() error = %v", err)
	}
	if logger.AppName != "fallback" || logger.File.Dir != "/var/log/demo" {
		t.Errorf("got %+v", logger)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_A", "a")
	tests := map[string]string{
		"plain":              "plain",
		"${TEST_A}":          "a",
		"x-${TEST_A}-y":      "x-a-y",
		"${TEST_MISSING}":    "",
		"${TEST_MISSING:d}":  "d",
		"${TEST_A}${TEST_A}": "aa",
		"${TEST_A":           "${TEST_A",
	}
	for in, want := range tests {
		if got := expandEnvVar(in); got != want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	if err := cfg.LoadBytes([]byte("logger:\n  level: info\n  file:\n    maxFiles: 10\n"), FormatYAML); err != nil {
		t.Fatal(err)
	}

	cfg.ApplyEnv(EnvPrefix, []string{
		"APPLOG_LOGGER__LEVEL=error",
		"APPLOG_LOGGER__FILE__MAX_FILES=3",
		"APPLOG_LOGGER__APP_NAME=fromenv",
		"OTHER_LOGGER__LEVEL=debug",
		"APPLOG_BROKEN",
	})

	var app appConfig
	if err := cfg.Unmarshal(&app); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if app.Logger.Level != "error" || app.Logger.File.MaxFiles != 3 || app.Logger.AppName != "fromenv" {
		t.Errorf("got %+v", app.Logger)
	}
	if _, ok := cfg.Get("logger.file.maxFiles"); !ok {
		t.Error("existing key spelling should be kept")
	}
}

func TestUnmarshalKey_Errors(t *testing.T) {
	cfg := New()
	cfg.Set("logger", "scalar")

	var logger loggerConfig
	if err := cfg.UnmarshalKey("logger", &logger); err == nil {
		t.Error("expected error for scalar section")
	}
	if err := cfg.UnmarshalKey("missing", &logger); err != nil {
		t.Errorf("missing key should leave target untouched, got %v", err)
	}

	cfg.Set("logger", map[string]any{"file": map[string]any{"maxAge": "soon"}})
	if err := cfg.UnmarshalKey("logger", &logger); err == nil || !strings.Contains(err.Error(), "file.maxAge") {
		t.Errorf("error = %v, want field path", err)
	}
}

func TestDump(t *testing.T) {
	cfg := New()
	cfg.Set("logger.level", "warn")

	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		out, err := cfg.Dump(format)
		if err != nil {
			t.Fatalf("Dump(%s) error = %v", format, err)
		}

		back := New()
		if err := back.LoadBytes(out, format); err != nil {
			t.Fatalf("reload %s: %v", format, err)
		}
		if v, _ := back.Get("logger.level"); v != "warn" {
			t.Errorf("%s round trip = %v", format, v)
		}
	}

	if _, err := cfg.Dump(Format("ini")); err == nil {
		t.Error("Dump(ini) should fail")
	}
}

func TestMustLoad(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustLoad() should panic on missing file")
		}
	}()
	MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
}

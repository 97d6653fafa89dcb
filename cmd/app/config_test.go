package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Agrid-Dev/hpelec/internal/datasource"
	"github.com/Agrid-Dev/hpelec/internal/heatpump"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

func TestEnvKeyTransform_TopLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PROFILES", "profiles"},
		{"LOG", "log"},
		{"OTHER_KEY", "other_key"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Controllers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CONTROLLERS_HTTP_ADDR", "controllers.http.addr"},
		{"CONTROLLERS_MQTT_BROKER_URL", "controllers.mqtt.broker_url"},
		{"CONTROLLERS_MODBUS_UNIT_ID", "controllers.modbus.unit_id"},
		{"CONTROLLERS_HTTP", "controllers_http"},   // not enough parts -> fallback
		{"CONTROLLERS__ADDR", "controllers..addr"}, // edge case
		{"controllers_HTTP_addr", "controllers.http.addr"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Sections(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PROFILES_OUTPUT_DIR", "profiles.output_dir"},
		{"PROFILES_CONTINUE_ON_ERROR", "profiles.continue_on_error"},
		{"SOURCES_TEMPERATURE_URL", "sources.temperature_url"},
		{"SOURCES_RETRY_BACKOFF", "sources.retry_backoff"},
		{"HEATPUMP_PARAMS_FILE", "heatpump.params_file"},
		{"LOG_LEVEL", "log.level"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Profiles.States) != len(profile.ContiguousStates) {
		t.Fatalf("expected %d states, got %d", len(profile.ContiguousStates), len(cfg.Profiles.States))
	}
	if cfg.Profiles.OutputDir != "Profiles" || cfg.Profiles.Workers != 4 {
		t.Fatalf("unexpected profiles section %+v", cfg.Profiles)
	}
	if cfg.Sources.TemperatureURL != datasource.DefaultTemperatureURL || cfg.Sources.Timeout != 30*time.Second {
		t.Fatalf("unexpected sources section %+v", cfg.Sources)
	}
	if !cfg.Controllers.HTTP.Enabled {
		t.Fatal("expected HTTP enabled when no controller is")
	}
	if err := cfg.ProfileConfig().Validate(); err != nil {
		t.Fatalf("default profile config invalid: %v", err)
	}
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
profiles:
  states: [vt, NH]
  workers: 2
  continue_on_error: true
sources:
  retry_backoff: 250ms
controllers:
  mqtt:
    enabled: true
    base_topic: grid/hpelec
log:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HPELEC_PROFILES_OUTPUT_DIR", "/tmp/out")
	t.Setenv("HPELEC_CONTROLLERS_MQTT_QOS", "1")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(cfg.Profiles.States, ","); got != "VT,NH" {
		t.Fatalf("states = %s", got)
	}
	if cfg.Profiles.Workers != 2 || !cfg.Profiles.ContinueOnError {
		t.Fatalf("unexpected profiles %+v", cfg.Profiles)
	}
	if cfg.Profiles.OutputDir != "/tmp/out" {
		t.Fatalf("env override not applied: %q", cfg.Profiles.OutputDir)
	}
	if cfg.Sources.RetryBackoff != 250*time.Millisecond {
		t.Fatalf("backoff = %v", cfg.Sources.RetryBackoff)
	}
	if cfg.Profiles.BaseYear != 2019 {
		t.Fatalf("default base year lost: %d", cfg.Profiles.BaseYear)
	}
	m := cfg.Controllers.MQTT
	if !m.Enabled || m.BaseTopic != "grid/hpelec" || m.QoS != 1 || m.BrokerURL != "tcp://localhost:1883" {
		t.Fatalf("unexpected mqtt %+v", m)
	}
	if cfg.Controllers.HTTP.Enabled {
		t.Fatal("HTTP should stay disabled when MQTT is enabled")
	}
}

func TestLoadConfig_EnvStateList(t *testing.T) {
	t.Setenv("HPELEC_PROFILES_STATES", "CO, ma,,CO")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(cfg.Profiles.States, ","); got != "CO,MA" {
		t.Fatalf("states = %q", cfg.Profiles.States)
	}
}

func TestEnvValue(t *testing.T) {
	got, ok := envValue("profiles.states", " VT ,NH").([]string)
	if !ok || len(got) != 2 || got[0] != "VT" || got[1] != "NH" {
		t.Fatalf("envValue(states) = %#v", got)
	}
	if v := envValue("profiles.output_dir", "a,b"); v != "a,b" {
		t.Fatalf("scalar keys must stay untouched, got %#v", v)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"profiles":{"base_year":2018}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Profiles.BaseYear != 2018 {
		t.Fatalf("base year = %d", cfg.Profiles.BaseYear)
	}
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for .toml")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	log.Warn("shown", "state", "VT")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"state":"VT"`) {
		t.Fatalf("unexpected log output %s", buf.String())
	}

	if _, err := NewLogger(LogConfig{Level: "loud"}, &buf); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := NewLogger(LogConfig{Level: "info", Format: "xml"}, &buf); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParamsTable(t *testing.T) {
	var cfg Config
	tbl, err := cfg.ParamsTable()
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl) != len(heatpump.Models) {
		t.Fatalf("expected built-in table, got %v", tbl.Names())
	}

	cfg.HeatPump.ParamsFile = filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := cfg.ParamsTable(); err == nil {
		t.Fatal("expected error for missing params file")
	}
}

func TestTemperatureSourceSelection(t *testing.T) {
	cfg := defaultConfig()
	if _, ok := cfg.TemperatureSource(nil).(*datasource.HTTPTemperatureSource); !ok {
		t.Fatal("expected HTTP source by default")
	}
	cfg.Sources.TemperatureDir = t.TempDir()
	if _, ok := cfg.TemperatureSource(nil).(datasource.DirTemperatureSource); !ok {
		t.Fatal("expected directory source")
	}
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Profiles.Workers = 0
	if _, err := cfg.NewGenerator(nil); !errors.Is(err, profile.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

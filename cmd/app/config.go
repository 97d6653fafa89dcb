package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/hpelec/internal/datasource"
	"github.com/Agrid-Dev/hpelec/internal/profile"
)

const envPrefix = "HPELEC_"

type Config struct {
	Profiles    ProfilesConfig    `koanf:"profiles"`
	Sources     SourcesConfig     `koanf:"sources"`
	HeatPump    HeatPumpConfig    `koanf:"heatpump"`
	Controllers ControllersConfig `koanf:"controllers"`
	Log         LogConfig         `koanf:"log"`
}

type ProfilesConfig struct {
	States    []string `koanf:"states"`
	YearFirst int      `koanf:"year_first"`
	YearLast  int      `koanf:"year_last"`
	BaseYear  int      `koanf:"base_year"`

	ReferenceTempRes float64 `koanf:"reference_temp_res"`
	ReferenceTempCom float64 `koanf:"reference_temp_com"`

	ConvMMBtuToKWh     float64 `koanf:"conv_mmbtu_to_kwh"`
	ConvKWToMW         float64 `koanf:"conv_kw_to_mw"`
	BaselineEfficiency float64 `koanf:"baseline_efficiency"`

	OutputDir       string `koanf:"output_dir"`
	Workers         int    `koanf:"workers"`
	ContinueOnError bool   `koanf:"continue_on_error"`
}

type SourcesConfig struct {
	TemperatureURL string        `koanf:"temperature_url"`
	TemperatureDir string        `koanf:"temperature_dir"` // when set, read local snapshots instead of the URL
	StockDir       string        `koanf:"stock_dir"`
	Timeout        time.Duration `koanf:"timeout"`
	Retries        int           `koanf:"retries"`
	RetryBackoff   time.Duration `koanf:"retry_backoff"`
}

type HeatPumpConfig struct {
	ParamsFile string `koanf:"params_file"` // empty: built-in table
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	Modbus ModbusConfig `koanf:"modbus"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BrokerURL     string `koanf:"broker_url"`
	ClientID      string `koanf:"client_id"`
	BaseTopic     string `koanf:"base_topic"`
	QoS           byte   `koanf:"qos"`
	RetainResults bool   `koanf:"retain_results"`
	Username      string `koanf:"username"`
	Password      string `koanf:"password"`
}

type ModbusConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Addr        string  `koanf:"addr"`
	UnitID      byte    `koanf:"unit_id"`
	Temperature float64 `koanf:"temperature"`
	Model       string  `koanf:"model"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // text | json
}

func defaultConfig() Config {
	p := profile.DefaultConfig()
	return Config{
		Profiles: ProfilesConfig{
			States:             p.States,
			YearFirst:          p.YearFirst,
			YearLast:           p.YearLast,
			BaseYear:           p.BaseYear,
			ReferenceTempRes:   p.ReferenceTempRes,
			ReferenceTempCom:   p.ReferenceTempCom,
			ConvMMBtuToKWh:     p.ConvMMBtuToKWh,
			ConvKWToMW:         p.ConvKWToMW,
			BaselineEfficiency: p.BaselineEfficiency,
			OutputDir:          "Profiles",
			Workers:            p.Workers,
		},
		Sources: SourcesConfig{
			TemperatureURL: datasource.DefaultTemperatureURL,
			StockDir:       "data",
			Timeout:        30 * time.Second,
			Retries:        2,
			RetryBackoff:   time.Second,
		},
		Controllers: ControllersConfig{
			HTTP:   HTTPConfig{Addr: ":8080"},
			MQTT:   MQTTConfig{BrokerURL: "tcp://localhost:1883", BaseTopic: "hpelec"},
			Modbus: ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1, Model: "advperfhp"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig layers built-in defaults, the optional config file at path
// (.yaml/.yml/.json) and HPELEC_* environment variables. A missing file
// falls back to defaults.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load() // ignore missing .env

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, err
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = envKeyTransform(strings.TrimPrefix(key, envPrefix))
			return key, envValue(key, value)
		},
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Config file missing → use defaults
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.Modbus.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	cfg.Profiles.States = profile.NormalizeStates(cfg.Profiles.States)
}

// listKeys are the koanf paths whose env value is a comma separated list.
var listKeys = map[string]bool{
	"profiles.states": true,
}

func envValue(key, value string) any {
	if !listKeys[key] {
		return value
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// envKeyTransform maps an environment key (prefix already stripped) to a
// koanf path: PROFILES_OUTPUT_DIR → profiles.output_dir,
// CONTROLLERS_MQTT_BROKER_URL → controllers.mqtt.broker_url.
func envKeyTransform(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return ""
	}
	parts := strings.Split(k, "_")

	switch parts[0] {
	case "controllers":
		// controllers.<name>.<field>
		if len(parts) < 3 {
			return k
		}
		return parts[0] + "." + parts[1] + "." + strings.Join(parts[2:], "_")
	case "profiles", "sources", "heatpump", "log":
		if len(parts) < 2 {
			return k
		}
		return parts[0] + "." + strings.Join(parts[1:], "_")
	default:
		return k
	}
}

// ProfileConfig is the immutable generator configuration.
func (c Config) ProfileConfig() profile.Config {
	p := c.Profiles
	return profile.Config{
		States:             p.States,
		YearFirst:          p.YearFirst,
		YearLast:           p.YearLast,
		BaseYear:           p.BaseYear,
		ReferenceTempRes:   p.ReferenceTempRes,
		ReferenceTempCom:   p.ReferenceTempCom,
		ConvMMBtuToKWh:     p.ConvMMBtuToKWh,
		ConvKWToMW:         p.ConvKWToMW,
		BaselineEfficiency: p.BaselineEfficiency,
		Workers:            p.Workers,
		ContinueOnError:    p.ContinueOnError,
	}
}

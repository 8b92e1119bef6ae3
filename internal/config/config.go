// Package config holds the static configuration of one trendchop run.
//
// Precedence, lowest to highest: Default() -> YAML file -> TRENDCHOP_* environment -> CLI flags.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"trendchop/internal/domain"
	"trendchop/internal/features"
	"trendchop/internal/loader"
	"trendchop/internal/segment"
)

// EnvPrefix is the prefix of environment overrides, e.g. TRENDCHOP_CLICKHOUSE_DSN.
const EnvPrefix = "TRENDCHOP"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full run configuration.
type Config struct {
	Date        string            `yaml:"date"`
	Symbols     []string          `yaml:"symbols"`
	Sources     SourcesConfig     `yaml:"sources"`
	OutDir      string            `yaml:"out_dir"`
	Instruments InstrumentsConfig `yaml:"instruments"`
	Engine      EngineConfig      `yaml:"engine"`
	Workers     int               `yaml:"workers"`
	Verbose     bool              `yaml:"verbose"`
	Sinks       SinksConfig       `yaml:"sinks"`
}

// SourceConfig locates one candidate price file.
type SourceConfig struct {
	Dir      string `yaml:"dir"`
	Template string `yaml:"template"` // "{date}" is replaced by the run date
}

// SourcesConfig lists the candidate files by kind.
type SourcesConfig struct {
	Z SourceConfig `yaml:"z"` // top-of-book signal, preferred
	B SourceConfig `yaml:"b"` // 1s bars
	T SourceConfig `yaml:"t"` // trades, last resort
}

// InstrumentFamily maps a symbol prefix to its tick size.
type InstrumentFamily struct {
	Prefix   string  `yaml:"prefix"`
	TickSize float64 `yaml:"tick_size"`
}

// InstrumentsConfig resolves tick sizes. Families are matched in order;
// symbols matching none use DefaultTickSize.
type InstrumentsConfig struct {
	Families        []InstrumentFamily `yaml:"families"`
	DefaultTickSize float64            `yaml:"default_tick_size"`
}

// EngineConfig parameterises the feature engine.
type EngineConfig struct {
	Windows  []int   `yaml:"windows"`
	EREnter  float64 `yaml:"er_enter"`
	ERExit   float64 `yaml:"er_exit"`
	TSEnter  float64 `yaml:"ts_enter"`
	TSRef    float64 `yaml:"ts_ref"`
	EMAAlpha float64 `yaml:"ema_alpha"`
}

// SinksConfig enables optional outputs besides the CSV.
type SinksConfig struct {
	ClickHouseDSN   string `yaml:"clickhouse_dsn"`
	PostgresDSN     string `yaml:"postgres_dsn"`
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// envOverrides is read from TRENDCHOP_* variables. Empty values leave the config untouched.
type envOverrides struct {
	ZDir            string `envconfig:"Z_DIR"`
	BDir            string `envconfig:"B_DIR"`
	TDir            string `envconfig:"T_DIR"`
	OutDir          string `envconfig:"OUT_DIR"`
	ClickHouseDSN   string `envconfig:"CLICKHOUSE_DSN"`
	PostgresDSN     string `envconfig:"POSTGRES_DSN"`
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Symbols: []string{"WING26", "WDOF26"},
		Sources: SourcesConfig{
			Z: SourceConfig{Dir: "/home/grao/dados/z", Template: "{date}_ztop_signal_1s.csv"},
			B: SourceConfig{Dir: "/home/grao/dados/b", Template: "{date}_b_1s.csv"},
			T: SourceConfig{Dir: "/home/grao/dados/t", Template: "{date}_t_1s.csv"},
		},
		OutDir: "/home/grao/dados/chope",
		Instruments: InstrumentsConfig{
			Families:        []InstrumentFamily{{Prefix: "WDO", TickSize: 0.5}},
			DefaultTickSize: 5.0,
		},
		Engine: EngineConfig{
			Windows:  []int{30, 120, 300, 900},
			EREnter:  0.35,
			ERExit:   0.25,
			TSEnter:  1.0,
			TSRef:    2.0,
			EMAAlpha: 0.05,
		},
		Workers: 1,
	}
}

// Load builds a config from defaults, the optional YAML file at path and the environment.
// A ".env" file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays TRENDCHOP_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	setIf(&c.Sources.Z.Dir, env.ZDir)
	setIf(&c.Sources.B.Dir, env.BDir)
	setIf(&c.Sources.T.Dir, env.TDir)
	setIf(&c.OutDir, env.OutDir)
	setIf(&c.Sinks.ClickHouseDSN, env.ClickHouseDSN)
	setIf(&c.Sinks.PostgresDSN, env.PostgresDSN)
	setIf(&c.Sinks.MetricsTextfile, env.MetricsTextfile)
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the config and normalises symbols and windows.
func (c *Config) Validate() error {
	c.Date = strings.TrimSpace(c.Date)
	if _, err := time.Parse("20060102", c.Date); err != nil || len(c.Date) != 8 {
		return fmt.Errorf("%w: date %q is not YYYYMMDD", ErrInvalidConfig, c.Date)
	}

	c.Symbols = normaliseSymbols(c.Symbols)
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols", ErrInvalidConfig)
	}

	if len(c.Engine.Windows) == 0 {
		return fmt.Errorf("%w: no windows", ErrInvalidConfig)
	}
	seen := make(map[int]struct{}, len(c.Engine.Windows))
	for _, w := range c.Engine.Windows {
		if w <= 0 {
			return fmt.Errorf("%w: window %d must be positive", ErrInvalidConfig, w)
		}
		if _, dup := seen[w]; dup {
			return fmt.Errorf("%w: window %d repeated", ErrInvalidConfig, w)
		}
		seen[w] = struct{}{}
	}
	sort.Ints(c.Engine.Windows)

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"er_enter", c.Engine.EREnter},
		{"er_exit", c.Engine.ERExit},
		{"ts_enter", c.Engine.TSEnter},
		{"ts_ref", c.Engine.TSRef},
		{"ema_alpha", c.Engine.EMAAlpha},
		{"default_tick_size", c.Instruments.DefaultTickSize},
	} {
		if !isFinite(f.v) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, f.name, f.v)
		}
	}

	if c.Engine.ERExit > c.Engine.EREnter {
		return fmt.Errorf("%w: er_exit %v above er_enter %v", ErrInvalidConfig, c.Engine.ERExit, c.Engine.EREnter)
	}
	if c.Engine.TSEnter < 0 {
		return fmt.Errorf("%w: ts_enter must not be negative", ErrInvalidConfig)
	}
	if c.Engine.TSRef <= 0 {
		return fmt.Errorf("%w: ts_ref must be positive", ErrInvalidConfig)
	}
	if c.Engine.EMAAlpha <= 0 || c.Engine.EMAAlpha > 1 {
		return fmt.Errorf("%w: ema_alpha %v outside (0, 1]", ErrInvalidConfig, c.Engine.EMAAlpha)
	}

	if c.Instruments.DefaultTickSize <= 0 {
		return fmt.Errorf("%w: default_tick_size must be positive", ErrInvalidConfig)
	}
	for _, fam := range c.Instruments.Families {
		if fam.Prefix == "" || !isFinite(fam.TickSize) || fam.TickSize <= 0 {
			return fmt.Errorf("%w: instrument family %q needs a prefix and a positive tick size", ErrInvalidConfig, fam.Prefix)
		}
	}

	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.OutDir == "" {
		return fmt.Errorf("%w: out_dir is empty", ErrInvalidConfig)
	}

	return nil
}

func normaliseSymbols(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// TickSize returns the tick size of symbol's instrument family.
func (c *Config) TickSize(symbol string) float64 {
	upper := strings.ToUpper(symbol)
	for _, fam := range c.Instruments.Families {
		if strings.HasPrefix(upper, strings.ToUpper(fam.Prefix)) {
			return fam.TickSize
		}
	}
	return c.Instruments.DefaultTickSize
}

// SourceSpecs returns the candidate files in priority order (Z, B, T).
func (c *Config) SourceSpecs() []loader.SourceSpec {
	return []loader.SourceSpec{
		{Kind: domain.SourceZ, Dir: c.Sources.Z.Dir, Template: c.Sources.Z.Template},
		{Kind: domain.SourceB, Dir: c.Sources.B.Dir, Template: c.Sources.B.Template},
		{Kind: domain.SourceT, Dir: c.Sources.T.Dir, Template: c.Sources.T.Template},
	}
}

// Params returns the engine parameters.
func (c *Config) Params() features.Params {
	windows := make([]int, len(c.Engine.Windows))
	copy(windows, c.Engine.Windows)
	return features.Params{
		Windows: windows,
		Thresholds: segment.Thresholds{
			EREnter: c.Engine.EREnter,
			ERExit:  c.Engine.ERExit,
			TSEnter: c.Engine.TSEnter,
		},
		TSRef:    c.Engine.TSRef,
		EMAAlpha: c.Engine.EMAAlpha,
	}
}

// ParseWindows parses a comma-separated window list such as "30,120,300".
func ParseWindows(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: window %q: %v", ErrInvalidConfig, part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseSymbols splits a comma-separated symbol list.
func ParseSymbols(s string) []string {
	return normaliseSymbols(strings.Split(s, ","))
}

// SetFamilyTickSize sets the tick size of the family with prefix, adding it if missing.
func (c *Config) SetFamilyTickSize(prefix string, tickSize float64) {
	for i, fam := range c.Instruments.Families {
		if strings.EqualFold(fam.Prefix, prefix) {
			c.Instruments.Families[i].TickSize = tickSize
			return
		}
	}
	c.Instruments.Families = append(c.Instruments.Families, InstrumentFamily{Prefix: prefix, TickSize: tickSize})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Package config loads application settings for the reactloop binaries.
//
// Values come, in increasing precedence, from built-in defaults, an optional
// reactloop.yaml, a .env file, REACTLOOP_* environment variables and command
// line flags bound by the caller. Library packages never read configuration
// themselves; they take functional options built from a Config.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix namespaces environment variables (REACTLOOP_STEP_LIMIT, ...).
const EnvPrefix = "REACTLOOP"

// Backends recognised by Validate.
const (
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendScripted  = "scripted"
)

// Config is the effective application configuration.
type Config struct {
	StepLimit             int           `mapstructure:"step_limit" yaml:"step_limit"`
	ToolCallLimit         int           `mapstructure:"tool_call_limit" yaml:"tool_call_limit"`
	GenerationTemperature float64       `mapstructure:"generation_temperature" yaml:"generation_temperature"`
	GenerationMaxTokens   int           `mapstructure:"generation_max_tokens" yaml:"generation_max_tokens"`
	TerminalMarker        string        `mapstructure:"terminal_marker" yaml:"terminal_marker"`
	FinalizeOnExhaustion  bool          `mapstructure:"finalize_on_exhaustion" yaml:"finalize_on_exhaustion"`
	Timeout               time.Duration `mapstructure:"timeout" yaml:"timeout"`

	Backend string `mapstructure:"backend" yaml:"backend"`
	// Model is backend specific; empty selects the backend default.
	Model   string `mapstructure:"model" yaml:"model,omitempty"`
	Host    string `mapstructure:"host" yaml:"host,omitempty"`
	APIKey  string `mapstructure:"api_key" yaml:"-"`

	ToolTimeout time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
	LogRoot     string        `mapstructure:"log_root" yaml:"log_root,omitempty"`
	CustomerDB  string        `mapstructure:"customer_db" yaml:"customer_db,omitempty"`

	WarmupWorkers int `mapstructure:"warmup_workers" yaml:"warmup_workers"`
	WarmupReps    int `mapstructure:"warmup_reps" yaml:"warmup_reps"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Defaults returns the reference configuration.
func Defaults() Config {
	return Config{
		StepLimit:             6,
		ToolCallLimit:         2,
		GenerationTemperature: 0.2,
		GenerationMaxTokens:   300,
		TerminalMarker:        "Final:",
		Timeout:               60 * time.Second,
		Backend:               BackendOllama,
		ToolTimeout:           10 * time.Second,
		WarmupWorkers:         3,
		WarmupReps:            3,
		LogLevel:              "warn",
		LogFormat:             "text",
	}
}

// SetDefaults registers Defaults on v so that environment variables are
// picked up for every key.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("step_limit", d.StepLimit)
	v.SetDefault("tool_call_limit", d.ToolCallLimit)
	v.SetDefault("generation_temperature", d.GenerationTemperature)
	v.SetDefault("generation_max_tokens", d.GenerationMaxTokens)
	v.SetDefault("terminal_marker", d.TerminalMarker)
	v.SetDefault("finalize_on_exhaustion", d.FinalizeOnExhaustion)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("model", "")
	v.SetDefault("host", "")
	v.SetDefault("api_key", "")
	v.SetDefault("tool_timeout", d.ToolTimeout)
	v.SetDefault("log_root", "")
	v.SetDefault("customer_db", "")
	v.SetDefault("warmup_workers", d.WarmupWorkers)
	v.SetDefault("warmup_reps", d.WarmupReps)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Load reads configuration into a Config. configFile may be empty, in which
// case reactloop.yaml is searched in the working directory and
// $HOME/.reactloop; a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("reactloop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".reactloop"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var problems []string
	if c.StepLimit < 1 {
		problems = append(problems, fmt.Sprintf("step_limit must be >= 1, got %d", c.StepLimit))
	}
	if c.ToolCallLimit < 0 {
		problems = append(problems, fmt.Sprintf("tool_call_limit must be >= 0, got %d", c.ToolCallLimit))
	}
	if strings.TrimSpace(c.TerminalMarker) == "" {
		problems = append(problems, "terminal_marker must not be empty")
	}
	if c.GenerationMaxTokens < 0 {
		problems = append(problems, "generation_max_tokens must not be negative")
	}
	if c.Timeout < 0 || c.ToolTimeout < 0 {
		problems = append(problems, "timeouts must not be negative")
	}
	switch c.Backend {
	case BackendOllama, BackendOpenAI, BackendAnthropic, BackendScripted:
	default:
		problems = append(problems, fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Dump writes the configuration as YAML. Secrets are omitted.
func Dump(w io.Writer, c *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Package config loads process configuration from defaults, an optional
// YAML file under $XDG_CONFIG_HOME/floratings, FLORATINGS_* environment
// variables, and runtime overrides, in that precedence order (later
// sources win), the way the teacher's viper-based command tree does.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// ServerConfig configures the artifact/health HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger built by internal/observability.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig is a placeholder surface for a future metrics endpoint;
// no metrics are emitted yet, but the config shape matches the teacher's.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig holds the health.enabled setting; the server mounts its
// /health endpoints without consulting it.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig toggles development-only behavior.
type DebugConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// RatingConfig holds default crawl/replay parameters, overridable per
// invocation by CLI flags.
type RatingConfig struct {
	StorePath    string   `mapstructure:"store_path"`
	Seed         string   `mapstructure:"seed"`
	DepthLimit   int      `mapstructure:"depth_limit"`
	WeightClasses []string `mapstructure:"weight_classes"`
	Tau          float64  `mapstructure:"tau"`
	APIBaseURL   string   `mapstructure:"api_base_url"`
}

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`
	Rating  RatingConfig  `mapstructure:"rating"`
	Workers int           `mapstructure:"workers"`
}

const envPrefix = "FLORATINGS"

var (
	configMu  sync.Mutex
	appConfig *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)

	v.SetDefault("rating.store_path", "data.db")
	v.SetDefault("rating.depth_limit", 2)
	v.SetDefault("rating.tau", 0.5)

	v.SetDefault("workers", 4)
}

// userConfigPath returns the per-user config file path, or "" if the
// platform config directory cannot be determined.
func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "floratings", "config.yaml")
}

// durationHook converts string env/config values like "45s" into
// time.Duration struct fields during mapstructure decoding.
func durationHook() mapstructure.DecodeHookFunc {
	return mapstructure.StringToTimeDurationHookFunc()
}

// Load builds the process Config from defaults, an optional config file,
// FLORATINGS_* environment variables, and any runtime overrides supplied
// (each map is merged on top of the previous source, later overrides win).
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := userConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		_ = v.BindEnv(spec.Path, spec.Name)
	}

	for _, override := range overrides {
		for key, value := range flattenOverrides("", override) {
			v.Set(key, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	_ = ctx
	return &cfg, nil
}

// flattenOverrides turns a nested override map into viper dotted-key
// assignments, e.g. {"server": {"port": 9000}} -> {"server.port": 9000}.
func flattenOverrides(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flattenOverrides(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// GetConfig returns the most recently loaded config, or nil if Load has
// never been called.
func GetConfig() *Config {
	configMu.Lock()
	defer configMu.Unlock()
	return appConfig
}

// envSpec is one environment variable to struct-path binding.
type envSpec struct {
	Name string
	Path string
}

// getEnvSpecs enumerates the FLORATINGS_* environment variables this
// package recognizes; Load binds each one to its config path.
func getEnvSpecs() []envSpec {
	prefix := envPrefix + "_"
	return []envSpec{
		{Name: prefix + "HOST", Path: "server.host"},
		{Name: prefix + "PORT", Path: "server.port"},
		{Name: prefix + "READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: prefix + "WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: prefix + "IDLE_TIMEOUT", Path: "server.idle_timeout"},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: prefix + "LOG_LEVEL", Path: "logging.level"},
		{Name: prefix + "LOG_PROFILE", Path: "logging.profile"},
		{Name: prefix + "METRICS_ENABLED", Path: "metrics.enabled"},
		{Name: prefix + "METRICS_PORT", Path: "metrics.port"},
		{Name: prefix + "HEALTH_ENABLED", Path: "health.enabled"},
		{Name: prefix + "STORE_PATH", Path: "rating.store_path"},
		{Name: prefix + "SEED", Path: "rating.seed"},
		{Name: prefix + "DEPTH_LIMIT", Path: "rating.depth_limit"},
		{Name: prefix + "TAU", Path: "rating.tau"},
		{Name: prefix + "API_BASE_URL", Path: "rating.api_base_url"},
		{Name: prefix + "WORKERS", Path: "workers"},
	}
}

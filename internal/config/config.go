package config

import (
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultUpstream = "https://api.codetime.dev"
	DefaultLogDir   = "logs"
	DefaultPort     = 9492
)

// Config is the immutable configuration snapshot, loaded once at process
// start from the environment.
type Config struct {
	Upstream    string
	LogDir      string
	DatabaseURL string
	Port        int
	LegacyCSV   bool
	LogLevel    string
}

// Load reads the environment and validates the upstream URL. A malformed
// upstream (missing scheme or authority) falls back to the default rather
// than failing startup.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("upstream", DefaultUpstream)
	v.SetDefault("log_dir", DefaultLogDir)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("legacy_csv", false)
	v.SetDefault("log_level", "info")

	bindings := map[string]string{
		"upstream":   "CODETIME_UPSTREAM",
		"log_dir":    "CODETIME_LOG_DIR",
		"db_url":     "PG_URL",
		"port":       "CODETIME_PORT",
		"legacy_csv": "CODETIME_LEGACY_CSV",
		"log_level":  "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Upstream:    normalizeUpstream(v.GetString("upstream")),
		LogDir:      v.GetString("log_dir"),
		DatabaseURL: v.GetString("db_url"),
		Port:        v.GetInt("port"),
		LegacyCSV:   v.GetBool("legacy_csv"),
		LogLevel:    v.GetString("log_level"),
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = DefaultPort
	}
	return cfg, nil
}

func normalizeUpstream(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return DefaultUpstream
	}
	return raw
}

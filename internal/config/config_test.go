package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CODETIME_UPSTREAM", "")
	t.Setenv("CODETIME_LOG_DIR", "")
	t.Setenv("PG_URL", "")
	t.Setenv("CODETIME_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultUpstream, cfg.Upstream)
	assert.Equal(t, DefaultLogDir, cfg.LogDir)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.False(t, cfg.LegacyCSV)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CODETIME_UPSTREAM", "https://api.example.com")
	t.Setenv("CODETIME_LOG_DIR", "custom_logs")
	t.Setenv("PG_URL", "postgres://localhost/db")
	t.Setenv("CODETIME_PORT", "8080")
	t.Setenv("CODETIME_LEGACY_CSV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Upstream)
	assert.Equal(t, "custom_logs", cfg.LogDir)
	assert.Equal(t, "postgres://localhost/db", cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.LegacyCSV)
}

func TestUpstreamNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing slash stripped", "https://api.example.com/", "https://api.example.com"},
		{"missing scheme falls back", "api.example.com", DefaultUpstream},
		{"unsupported scheme falls back", "ftp://api.example.com", DefaultUpstream},
		{"missing host falls back", "https://", DefaultUpstream},
		{"empty falls back", "", DefaultUpstream},
		{"valid http kept", "http://localhost:8000", "http://localhost:8000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CODETIME_UPSTREAM", tt.in)
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Upstream)
		})
	}
}

func TestInvalidPortFallsBack(t *testing.T) {
	t.Setenv("CODETIME_PORT", "-1")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
}

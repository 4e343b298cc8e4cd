package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mentions")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5, cfg.DefaultPageSize)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.EmailEnabled())
	assert.Empty(t, cfg.DisabledSources)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "Missing database URL",
			env:  map[string]string{"JWT_SECRET": "0123456789abcdef"},
		},
		{
			name: "Short JWT secret",
			env:  map[string]string{"DATABASE_URL": "postgres://db", "JWT_SECRET": "short"},
		},
		{
			name: "SMTP host without credentials",
			env: map[string]string{
				"DATABASE_URL": "postgres://db",
				"JWT_SECRET":   "0123456789abcdef",
				"SMTP_HOST":    "smtp.example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSourceDisabled(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("DISABLED_SOURCES", "reddit, HackerNews ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"reddit", "HackerNews"}, cfg.DisabledSources)
	assert.True(t, cfg.SourceDisabled("Reddit"))
	assert.True(t, cfg.SourceDisabled("hackernews"))
	assert.False(t, cfg.SourceDisabled("stackoverflow"))
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadFromDefaults(t *testing.T) {
	t.Parallel()

	cfg, used, err := config.LoadFrom([]string{t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, used)

	assert.Equal(t, 8, cfg.Moderation.HammingThreshold)
	assert.Equal(t, 25, cfg.Moderation.BucketScanLimit)
	assert.InDelta(t, 0.7, cfg.Moderation.ForbiddenThreshold, 1e-9)
	assert.InDelta(t, 0.45, cfg.Moderation.SuggestThreshold, 1e-9)
	assert.InDelta(t, 0.55, cfg.Moderation.MediumLogThreshold, 1e-9)
	assert.Equal(t, 2, cfg.Moderation.FalseAppealThreshold)
	assert.Equal(t, 7, cfg.Moderation.CooldownDays)
	assert.False(t, cfg.Moderation.LLM.Enabled)
	assert.Equal(t, 8080, cfg.API.Server.Port)
}

func TestLoadFromFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "moderation.toml", `
version = 1
hamming_threshold = 6
cooldown_days = 3

[llm]
enabled = true
model = "gemini-test"
`)

	cfg, used, err := config.LoadFrom([]string{filepath.Join(dir, "missing"), dir})
	require.NoError(t, err)
	assert.Equal(t, dir, used)
	assert.Equal(t, 6, cfg.Moderation.HammingThreshold)
	assert.Equal(t, 3, cfg.Moderation.CooldownDays)
	assert.True(t, cfg.Moderation.LLM.Enabled)
	assert.Equal(t, "gemini-test", cfg.Moderation.LLM.Model)
	assert.Equal(t, 25, cfg.Moderation.BucketScanLimit)
}

func TestLoadFromVersionChecks(t *testing.T) {
	t.Parallel()

	t.Run("missing version", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "api.toml", "[server]\nport = 9000\n")

		_, _, err := config.LoadFrom([]string{dir})
		require.ErrorIs(t, err, config.ErrConfigVersionMissing)
	})

	t.Run("mismatch", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "common.toml", "version = 99\n")

		_, _, err := config.LoadFrom([]string{dir})
		require.ErrorIs(t, err, config.ErrConfigVersionMismatch)
	})

	invalid := []struct {
		name    string
		content string
	}{
		{"suggest above forbidden", "version = 1\nsuggest_threshold = 0.9\n"},
		{"zero request timeout", "version = 1\nrequest_timeout = 0\n"},
		{"negative request timeout", "version = 1\nrequest_timeout = -5\n"},
		{"negative digest cache ttl", "version = 1\ndigest_cache_ttl = -1\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeFile(t, dir, "moderation.toml", tt.content)

			_, _, err := config.LoadFrom([]string{dir})
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("IMAGEGATE_MODERATION__HAMMING_THRESHOLD", "5")
	t.Setenv("IMAGEGATE_MODERATION__LLM__ENABLED", "true")
	t.Setenv("IMAGEGATE_API__SERVER__PORT", "9090")

	cfg, _, err := config.LoadFrom([]string{t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Moderation.HammingThreshold)
	assert.True(t, cfg.Moderation.LLM.Enabled)
	assert.Equal(t, 9090, cfg.API.Server.Port)
}

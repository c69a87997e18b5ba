package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestDefaultIsValid(t *testing.T) {
	result := Default().Validate()
	assert.False(t, result.HasErrors(), result.Error())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Highlight.Mode = "rainbow"
	cfg.Storage.Type = "postgres"
	cfg.Workers = 0

	result := cfg.Validate()
	require.True(t, result.HasErrors())

	joined := result.Error()
	assert.Contains(t, joined, "Config.Highlight.Mode")
	assert.Contains(t, joined, "Config.Storage.PostgresDSN")
	assert.Contains(t, joined, "Config.Workers")
	assert.Error(t, cfg.MustValidate())
}

func TestValidateAcceptsModeAliases(t *testing.T) {
	for _, mode := range []string{"unchecked", "new", "new_lines", "top5", "top-5", "recent", "off", "none", "TOP5"} {
		cfg := Default()
		cfg.Highlight.Mode = mode
		assert.False(t, cfg.Validate().HasErrors(), mode)
	}
}

func TestValidateRedisNeedsHost(t *testing.T) {
	cfg := Default()
	cfg.Cache.Type = "redis"
	cfg.Cache.Redis.Host = ""

	assert.True(t, cfg.Validate().HasErrors())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
highlight:
  mode: unchecked
  window: 48h
storage:
  type: memory
workers: 2
`), 0644))

	t.Setenv("CRISK_ANNOTATE_DISPLAY_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "unchecked", cfg.Highlight.Mode)
	assert.Equal(t, 48*time.Hour, cfg.Highlight.Window)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "json", cfg.Display.Format)
	// untouched keys keep their defaults
	assert.Equal(t, "git", cfg.Git.Binary)
}

func TestSaveRoundTrip(t *testing.T) {
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Highlight.Mode = "off"
	cfg.Cache.Redis.UseKeychain = true
	cfg.Cache.Redis.Password = "hunter2"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "off", loaded.Highlight.Mode)
	assert.Equal(t, cfg.Cache.TTL, loaded.Cache.TTL)
}

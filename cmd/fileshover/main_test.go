package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/fileshover/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlags_OverridesOnlySetFlags(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Adapters.HTTP.Workers = 4

	f, set, err := parseServeFlags([]string{"-root", "/srv/site", "-port", "8080"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, applyFlags(cfg, f, set))

	assert.Equal(t, "/srv/site", cfg.Store.Filesystem["root"])
	assert.Equal(t, 8080, cfg.Adapters.HTTP.Port)
	assert.Equal(t, 4, cfg.Adapters.HTTP.Workers, "unset flag must not reset the file value")
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestApplyFlags_RootSwitchesToFilesystem(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Store.Type = "s3"
	cfg.Store.S3["bucket"] = "site"

	f, set, err := parseServeFlags([]string{"-root", "./public"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, applyFlags(cfg, f, set))

	assert.Equal(t, "filesystem", cfg.Store.Type)
}

func TestApplyFlags_InvalidValue(t *testing.T) {
	cfg := config.GetDefaultConfig()

	f, set, err := parseServeFlags([]string{"-log-level", "loud"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Error(t, applyFlags(cfg, f, set))
}

func TestParseServeFlags_Unknown(t *testing.T) {
	_, _, err := parseServeFlags([]string{"-bogus"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-h"}, &out))
	assert.Contains(t, out.String(), "fileshover init")
	assert.Contains(t, out.String(), "-root")
}

func TestRun_Init(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	require.NoError(t, run([]string{"init", "-config", path}, &out))
	assert.Contains(t, out.String(), path)

	_, err := os.Stat(path)
	require.NoError(t, err)

	assert.Error(t, run([]string{"init", "-config", path}, &out), "existing file without -force")
	assert.NoError(t, run([]string{"init", "-config", path, "-force"}, &out))
}

func TestRun_MissingRootFails(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "none.yaml")
	missing := filepath.Join(t.TempDir(), "missing")

	err := run([]string{"-config", configPath, "-root", missing}, &bytes.Buffer{})
	assert.Error(t, err)
}

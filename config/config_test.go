package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reactloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("step_limit: 4\ntool_call_limit: 1\ntimeout: 5s\nbackend: openai\nmodel: gpt-4o-mini\n"), 0o600))
	t.Setenv("REACTLOOP_TOOL_CALL_LIMIT", "0")
	t.Setenv("REACTLOOP_FINALIZE_ON_EXHAUSTION", "true")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.StepLimit)
	assert.Equal(t, 0, cfg.ToolCallLimit)
	assert.True(t, cfg.FinalizeOnExhaustion)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "Final:", cfg.TerminalMarker)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("step_limit: 0\nbackend: telepathy\n"), 0o600))

	_, err := Load(viper.New(), path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorContains(t, err, "step_limit must be >= 1")
	assert.ErrorContains(t, err, `unknown backend "telepathy"`)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "zero tool calls", mutate: func(c *Config) { c.ToolCallLimit = 0 }, ok: true},
		{name: "negative tool calls", mutate: func(c *Config) { c.ToolCallLimit = -1 }},
		{name: "blank marker", mutate: func(c *Config) { c.TerminalMarker = "  " }},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }},
		{name: "scripted backend", mutate: func(c *Config) { c.Backend = BackendScripted }, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("REACTLOOP_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("REACTLOOP_TEST_DOTENV", "")
	os.Unsetenv("REACTLOOP_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("REACTLOOP_TEST_DOTENV"))
}

func TestDump(t *testing.T) {
	cfg := Defaults()
	cfg.APIKey = "secret"

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, &cfg))
	assert.NotContains(t, buf.String(), "secret")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 6, back["step_limit"])
	assert.Equal(t, "Final:", back["terminal_marker"])
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			port:            8080,
			shakeDuration:   3 * time.Second,
			flickerInterval: 100 * time.Millisecond,
			revealDelay:     800 * time.Millisecond,
			redrawDelay:     400 * time.Millisecond,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"port too low", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, "--tls-key"},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, "--tls-key"},
		{"zero shake", func(c *Config) { c.shakeDuration = 0 }, "must be positive"},
		{"flicker too slow", func(c *Config) { c.flickerInterval = 5 * time.Second }, "must be shorter"},
		{"negative reveal", func(c *Config) { c.revealDelay = -time.Second }, "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigScheme(t *testing.T) {
	assert.Equal(t, "http", (&Config{}).scheme())
	assert.Equal(t, "https", (&Config{tlsCert: "c", tlsKey: "k"}).scheme())
}

func TestNewCmdDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, 3*time.Second, cfg.shakeDuration)
	assert.Equal(t, 100*time.Millisecond, cfg.flickerInterval)
	assert.Equal(t, 800*time.Millisecond, cfg.revealDelay)
	assert.Equal(t, 400*time.Millisecond, cfg.redrawDelay)
	assert.Equal(t, time.Hour, cfg.sessionTimeout)
	assert.False(t, cfg.metrics)
	assert.NoError(t, cfg.validate())
}

func TestNewCmdReadsEnvironment(t *testing.T) {
	t.Setenv("DICEDRAW_PORT", "9090")
	t.Setenv("DICEDRAW_SHAKE_DURATION", "5s")
	t.Setenv("DICEDRAW_METRICS", "true")

	cfg := &Config{}
	cmd := newCmd(cfg)

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 5*time.Second, cfg.shakeDuration)
	assert.True(t, cfg.metrics)

	require.NoError(t, cmd.ParseFlags([]string{"--port", "7000", "--reveal_delay", "1s"}))
	assert.Equal(t, 7000, cfg.port, "flags override the environment")
	assert.Equal(t, time.Second, cfg.revealDelay)
}

func TestNewLoggerLevel(t *testing.T) {
	quiet, err := newLogger(&Config{})
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.WarnLevel))

	verbose, err := newLogger(&Config{verbose: true})
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zapcore.InfoLevel))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
	require.Equal(t, 10*time.Second, cfg.Server.Timeout)
	require.True(t, cfg.Transport.Enabled)
	require.Equal(t, 3*time.Second, cfg.Transport.ReconnectDelay)
	require.Equal(t, 5, cfg.Transport.MaxReconnectAttempts)
	require.Equal(t, 10, cfg.Run.MaxSites)
	require.True(t, cfg.State.Persist)

	url, err := cfg.FeedURL()
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8000/ws/pipeline", url)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, `
server:
  base_url: https://runner.example.com
  timeout: 30s
transport:
  reconnect_delay: 500ms
  max_reconnect_attempts: 2
run:
  niche: fitness
  max_sites: 25
`)
	t.Setenv("LEADCTL_TRANSPORT_MAX_RECONNECT_ATTEMPTS", "7")
	t.Setenv("LEADCTL_RUN_NICHE", "fashion")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server", "", "")
	flags.Duration("timeout", 0, "")
	flags.Bool("no-persist", false, "")
	require.NoError(t, flags.Parse([]string{"--timeout", "5s", "--no-persist"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, "https://runner.example.com", cfg.Server.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Server.Timeout)
	require.Equal(t, 500*time.Millisecond, cfg.Transport.ReconnectDelay)
	require.Equal(t, 7, cfg.Transport.MaxReconnectAttempts)
	require.Equal(t, "fashion", cfg.Run.Niche)
	require.Equal(t, 25, cfg.Run.MaxSites)
	require.False(t, cfg.State.Persist)

	opts, err := cfg.TransportOptions()
	require.NoError(t, err)
	require.Equal(t, "wss://runner.example.com/ws/pipeline", opts.URL)
	require.Equal(t, 7, opts.MaxReconnectAttempts)

	jc := cfg.JobClientOptions()
	require.Equal(t, "https://runner.example.com", jc.BaseURL)
}

func TestLoad_ExplicitTransportURL(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "transport:\n  url: ws://feed.internal:9000/events\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	url, err := cfg.FeedURL()
	require.NoError(t, err)
	require.Equal(t, "ws://feed.internal:9000/events", url)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "run:\n  max_sites: 500\n")

	_, err := Load(path, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "run.max_sites")

	path = writeFile(t, dir, "server: [not, a, map\n")
	_, err = Load(path, nil)
	require.Error(t, err)
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "nested", DefaultConfigFilename)

	require.NoError(t, WriteDefault(path, false))
	require.Error(t, WriteDefault(path, false))
	require.NoError(t, WriteDefault(path, true))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	d := Default()
	require.Equal(t, d.Server, cfg.Server)
	require.Equal(t, d.Transport, cfg.Transport)
	require.Equal(t, d.Run, cfg.Run)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "user_agents.json", cfg.UAJSON)
	assert.Equal(t, 3*time.Second, cfg.GetProbeTimeout())
	assert.True(t, cfg.Probe.Follow)
	assert.Equal(t, 4, cfg.GetConcurrency())
	assert.Equal(t, "human", cfg.Output.Format)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "probe-requests", cfg.Kafka.Topics.Requests)
	assert.Equal(t, "8081", cfg.Server.HealthPort)
	assert.Equal(t, 5*time.Second, cfg.GetPollInterval())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROBE_TIMEOUT", "1.5")
	t.Setenv("PROBE_CONCURRENCY", "9")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ENV", "prod")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.GetProbeTimeout())
	assert.Equal(t, 9, cfg.GetConcurrency())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "prod", cfg.Env)
}

func TestLoadFlagsOverrideFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ua_json: agents.yaml
probe:
  timeout: 7
  concurrency: 2
  proxy: http://file-proxy:3128
output:
  format: json
`), 0o600))

	t.Setenv("PROBE_CONCURRENCY", "5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.Float64("timeout", 3.0, "")
	flags.Int("concurrency", 4, "")
	flags.StringSlice("engine", nil, "")
	flags.Bool("follow", true, "")
	require.NoError(t, flags.Parse([]string{"--config", path, "--timeout", "0.25", "--engine", "google,bing", "--follow=false"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "agents.yaml", cfg.UAJSON)
	assert.Equal(t, 250*time.Millisecond, cfg.GetProbeTimeout())
	assert.Equal(t, 5, cfg.GetConcurrency())
	assert.Equal(t, "http://file-proxy:3128", cfg.Probe.Proxy)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, []string{"google", "bing"}, cfg.Probe.Engines)
	assert.False(t, cfg.Probe.Follow)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	require.NoError(t, flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	_, err := Load(flags)
	assert.Error(t, err)
}

func TestClamps(t *testing.T) {
	cfg := &Config{Probe: ProbeConfig{Concurrency: -2, Timeout: 0}}
	assert.Equal(t, 1, cfg.GetConcurrency())
	assert.Equal(t, 3*time.Second, cfg.GetProbeTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetPollInterval())
}

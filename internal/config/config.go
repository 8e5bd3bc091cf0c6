package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Env    string       `mapstructure:"env"`
	UAJSON string       `mapstructure:"ua_json"`
	Probe  ProbeConfig  `mapstructure:"probe"`
	Output OutputConfig `mapstructure:"output"`
	Report ReportConfig `mapstructure:"report"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Server ServerConfig `mapstructure:"server"`
}

type ProbeConfig struct {
	Timeout     float64  `mapstructure:"timeout"`
	Follow      bool     `mapstructure:"follow"`
	Concurrency int      `mapstructure:"concurrency"`
	Proxy       string   `mapstructure:"proxy"`
	Engines     []string `mapstructure:"engines"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	Sort   bool   `mapstructure:"sort"`
}

type ReportConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type AgentConfig struct {
	Name         string `mapstructure:"name"`
	PollInterval int    `mapstructure:"poll_interval"`
}

type KafkaConfig struct {
	Brokers []string    `mapstructure:"brokers"`
	Topics  KafkaTopics `mapstructure:"topics"`
}

type KafkaTopics struct {
	Requests string `mapstructure:"requests"`
	Results  string `mapstructure:"results"`
	Logs     string `mapstructure:"logs"`
}

type ServerConfig struct {
	HealthPort string `mapstructure:"health_port"`
}

// Load builds the configuration from defaults, an optional config file,
// the environment and finally the given flags. flags may be nil. A
// "config" flag, when set, names the file to read.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("local")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("ua_json", "user_agents.json")

	// Probe defaults
	v.SetDefault("probe.timeout", 3.0)
	v.SetDefault("probe.follow", true)
	v.SetDefault("probe.concurrency", 4)
	v.SetDefault("probe.proxy", "")
	v.SetDefault("probe.engines", []string{})

	v.SetDefault("output.format", "human")
	v.SetDefault("output.sort", false)

	v.SetDefault("report.url", "")
	v.SetDefault("report.token", "")

	// Agent defaults
	v.SetDefault("agent.name", "ua-probe-agent")
	v.SetDefault("agent.poll_interval", 5)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topics.requests", "probe-requests")
	v.SetDefault("kafka.topics.results", "probe-results")
	v.SetDefault("kafka.topics.logs", "agent-logs")

	v.SetDefault("server.health_port", "8081")
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"config":      "config",
	"env":         "env",
	"ua-json":     "ua_json",
	"timeout":     "probe.timeout",
	"follow":      "probe.follow",
	"concurrency": "probe.concurrency",
	"proxy":       "probe.proxy",
	"engine":      "probe.engines",
	"out":         "output.format",
	"sort":        "output.sort",
	"report-url":  "report.url",
	"health-port": "server.health_port",
	"agent-name":  "agent.name",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// GetProbeTimeout returns the per-exchange timeout.
func (c *Config) GetProbeTimeout() time.Duration {
	if c.Probe.Timeout <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.Probe.Timeout * float64(time.Second))
}

// GetConcurrency clamps the configured worker count to at least one.
func (c *Config) GetConcurrency() int {
	if c.Probe.Concurrency < 1 {
		return 1
	}
	return c.Probe.Concurrency
}

func (c *Config) GetPollInterval() time.Duration {
	if c.Agent.PollInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Agent.PollInterval) * time.Second
}

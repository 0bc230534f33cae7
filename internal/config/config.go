// Package config loads the service configuration from YAML, applies flag and
// environment overrides and watches the file for changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultInterval     = 10 * time.Second
	DefaultWindow       = time.Hour
	DefaultHTTPAddr     = ":8080"
	DefaultPollInterval = 10 * time.Second
	DefaultMQTTBroker   = "tcp://localhost:1883"
	DefaultMQTTClientID = "uptimeboard"
	DefaultMQTTTopic    = "device/heartbeat/#"
	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisStream  = "heartbeats"
	DefaultRedisGroup   = "uptimeboard"
	DefaultQueueSize    = 1024
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
)

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	Uptime UptimeConfig `yaml:"uptime"`
	HTTP   HTTPConfig   `yaml:"http"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Redis  RedisConfig  `yaml:"redis"`
	Ingest IngestConfig `yaml:"ingest"`
	Log    LogConfig    `yaml:"log"`
}

// UptimeConfig holds the expected heartbeat cadence and the trailing window.
type UptimeConfig struct {
	Interval time.Duration `yaml:"interval"`
	Window   time.Duration `yaml:"window"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"`

	// PollInterval is how often the WebSocket hub pushes a fresh table.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// MQTTConfig configures the heartbeat subscriber.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// RedisConfig configures the Redis Streams consumer.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`

	// Consumer defaults to a random name per process when empty.
	Consumer string `yaml:"consumer"`
}

// IngestConfig sizes the queue between transports and the engine.
type IngestConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// LogConfig selects level (debug|info|warn|error) and format (json|console).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path, applies defaults and validates the
// result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Uptime.Interval == 0 {
		c.Uptime.Interval = DefaultInterval
	}
	if c.Uptime.Window == 0 {
		c.Uptime.Window = DefaultWindow
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.PollInterval == 0 {
		c.HTTP.PollInterval = DefaultPollInterval
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = DefaultMQTTBroker
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultMQTTClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = DefaultMQTTTopic
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = DefaultRedisStream
	}
	if c.Redis.Group == "" {
		c.Redis.Group = DefaultRedisGroup
	}
	if c.Ingest.QueueSize == 0 {
		c.Ingest.QueueSize = DefaultQueueSize
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Uptime.Interval <= 0 {
		return fmt.Errorf("config: uptime.interval must be positive, got %s", c.Uptime.Interval)
	}
	if c.Uptime.Window <= 0 {
		return fmt.Errorf("config: uptime.window must be positive, got %s", c.Uptime.Window)
	}
	if c.HTTP.PollInterval <= 0 {
		return fmt.Errorf("config: http.poll_interval must be positive, got %s", c.HTTP.PollInterval)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("config: mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Ingest.QueueSize < 0 {
		return fmt.Errorf("config: ingest.queue_size must not be negative, got %d", c.Ingest.QueueSize)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

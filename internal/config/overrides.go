package config

import "github.com/spf13/viper"

// Viper keys understood by ApplyOverrides. They double as flag names with
// dots replaced by dashes and as UPTIMEBOARD_* environment variables.
const (
	KeyInterval      = "uptime.interval"
	KeyWindow        = "uptime.window"
	KeyHTTPAddr      = "http.addr"
	KeyPollInterval  = "http.poll_interval"
	KeyMQTTEnabled   = "mqtt.enabled"
	KeyMQTTBroker    = "mqtt.broker"
	KeyMQTTTopic     = "mqtt.topic"
	KeyMQTTUsername  = "mqtt.username"
	KeyMQTTPassword  = "mqtt.password"
	KeyRedisEnabled  = "redis.enabled"
	KeyRedisAddr     = "redis.addr"
	KeyRedisPassword = "redis.password"
	KeyRedisStream   = "redis.stream"
	KeyQueueSize     = "ingest.queue_size"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
)

// ApplyOverrides copies every key explicitly set in v (flag, env or
// v.Set) over cfg and re-validates.
func ApplyOverrides(cfg *Config, v *viper.Viper) error {
	if v.IsSet(KeyInterval) {
		cfg.Uptime.Interval = v.GetDuration(KeyInterval)
	}
	if v.IsSet(KeyWindow) {
		cfg.Uptime.Window = v.GetDuration(KeyWindow)
	}
	if v.IsSet(KeyHTTPAddr) {
		cfg.HTTP.Addr = v.GetString(KeyHTTPAddr)
	}
	if v.IsSet(KeyPollInterval) {
		cfg.HTTP.PollInterval = v.GetDuration(KeyPollInterval)
	}
	if v.IsSet(KeyMQTTEnabled) {
		cfg.MQTT.Enabled = v.GetBool(KeyMQTTEnabled)
	}
	if v.IsSet(KeyMQTTBroker) {
		cfg.MQTT.Broker = v.GetString(KeyMQTTBroker)
	}
	if v.IsSet(KeyMQTTTopic) {
		cfg.MQTT.Topic = v.GetString(KeyMQTTTopic)
	}
	if v.IsSet(KeyMQTTUsername) {
		cfg.MQTT.Username = v.GetString(KeyMQTTUsername)
	}
	if v.IsSet(KeyMQTTPassword) {
		cfg.MQTT.Password = v.GetString(KeyMQTTPassword)
	}
	if v.IsSet(KeyRedisEnabled) {
		cfg.Redis.Enabled = v.GetBool(KeyRedisEnabled)
	}
	if v.IsSet(KeyRedisAddr) {
		cfg.Redis.Addr = v.GetString(KeyRedisAddr)
	}
	if v.IsSet(KeyRedisPassword) {
		cfg.Redis.Password = v.GetString(KeyRedisPassword)
	}
	if v.IsSet(KeyRedisStream) {
		cfg.Redis.Stream = v.GetString(KeyRedisStream)
	}
	if v.IsSet(KeyQueueSize) {
		cfg.Ingest.QueueSize = v.GetInt(KeyQueueSize)
	}
	if v.IsSet(KeyLogLevel) {
		cfg.Log.Level = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyLogFormat) {
		cfg.Log.Format = v.GetString(KeyLogFormat)
	}
	return cfg.Validate()
}

package main

import (
	"strings"

	"uptimeboard/internal/config"
	"uptimeboard/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const serviceName = "uptimeboard"

var (
	v       = viper.New()
	cfgPath string
)

var rootcmd = &cobra.Command{
	Use:           "uptimeboard",
	Short:         "Uptime Board tracks device heartbeats and reports windowed uptime",
	Long:          `Uptime Board ingests device heartbeats over HTTP, MQTT and Redis Streams and reports, per device, the percentage of expected heartbeats received over a trailing window.`,
	SilenceUsage: true,
}

var _ = func() (ret bool) {
	v.SetEnvPrefix("UPTIMEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	flags := rootcmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", `path to a YAML config file. empty runs on defaults`)
	flags.Duration(flagName(config.KeyInterval), config.DefaultInterval, `expected time between two heartbeats of a device`)
	flags.Duration(flagName(config.KeyWindow), config.DefaultWindow, `length of the trailing window uptime is measured over`)
	flags.String(flagName(config.KeyLogLevel), config.DefaultLogLevel, `log level: debug, info, warn or error`)
	flags.String(flagName(config.KeyLogFormat), config.DefaultLogFormat, `log format: json or console`)
	flags.String(flagName(config.KeyMQTTBroker), config.DefaultMQTTBroker, `MQTT broker url`)
	flags.String(flagName(config.KeyMQTTUsername), "", `MQTT username`)
	flags.String(flagName(config.KeyMQTTPassword), "", `MQTT password`)
	flags.String(flagName(config.KeyRedisAddr), config.DefaultRedisAddr, `Redis host:port`)
	flags.String(flagName(config.KeyRedisPassword), "", `Redis password`)
	flags.String(flagName(config.KeyRedisStream), config.DefaultRedisStream, `Redis stream heartbeats are read from or written to`)

	bind(rootcmd,
		config.KeyInterval, config.KeyWindow,
		config.KeyLogLevel, config.KeyLogFormat,
		config.KeyMQTTBroker, config.KeyMQTTUsername, config.KeyMQTTPassword,
		config.KeyRedisAddr, config.KeyRedisPassword, config.KeyRedisStream,
	)

	rootcmd.AddCommand(servecmd, historycmd, simulatecmd, clearretainedcmd)
	return
}()

// flagName maps a config key such as "uptime.interval" to "uptime-interval".
func flagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// bind attaches the persistent or local flag of each key to v.
func bind(cmd *cobra.Command, keys ...string) {
	for _, key := range keys {
		f := cmd.PersistentFlags().Lookup(flagName(key))
		if f == nil {
			f = cmd.Flags().Lookup(flagName(key))
		}
		if f == nil {
			continue
		}
		_ = v.BindPFlag(key, f)
	}
}

// loadConfig reads --config, then layers flags and UPTIMEBOARD_* variables
// on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyOverrides(cfg, v); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, err
	}
	if dotenvErr != nil {
		log.Debug("no .env file loaded", zap.Error(dotenvErr))
	}
	return log, nil
}

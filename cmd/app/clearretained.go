package main

import (
	"uptimeboard/internal/adapters/mqtt"
	"uptimeboard/internal/adapters/payload"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clearDevices []string

var clearretainedcmd = &cobra.Command{
	Use:   "clear-retained",
	Short: "removes retained heartbeat messages from the MQTT broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		client, err := mqtt.NewClient(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		topics := []string{payload.TopicPrefix}
		for _, id := range clearDevices {
			topics = append(topics, payload.Topic(id))
		}
		for _, topic := range topics {
			if err := client.ClearRetained(topic); err != nil {
				return err
			}
			log.Info("retained message cleared", zap.String("topic", topic))
		}
		return nil
	},
}

var _ = func() (ret bool) {
	clearretainedcmd.Flags().StringSliceVar(&clearDevices, "device", nil, `also clear device/heartbeat/<id> for these device ids`)
	return
}()

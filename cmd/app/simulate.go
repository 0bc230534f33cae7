package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"uptimeboard/internal/simulate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	liveSink     sinkOptions
	liveDevices  int
	liveDuration time.Duration
	liveSeed     int64
)

var simulatecmd = &cobra.Command{
	Use:   "simulate",
	Short: "publishes live heartbeats for a few devices, each skipping about one tick in ten",
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out, err := openSink(ctx, liveSink, cfg, log)
		if err != nil {
			return err
		}
		defer out.Close()

		live := simulate.NewLive(liveDevices, cfg.Uptime.Interval, liveSeed, log)
		log.Info("simulating devices",
			zap.Int("devices", liveDevices),
			zap.String("output", liveSink.output),
			zap.Duration("interval", cfg.Uptime.Interval))
		return live.Run(ctx, liveDuration, out)
	},
}

var _ = func() (ret bool) {
	flags := simulatecmd.Flags()
	addSinkFlags(&liveSink, flags, outputMQTT)
	flags.IntVar(&liveDevices, "devices", 5, `number of simulated devices`)
	flags.DurationVar(&liveDuration, "duration", 0, `stop after this long. 0 runs until interrupted`)
	flags.Int64Var(&liveSeed, "seed", time.Now().UnixNano(), `random seed`)
	return
}()

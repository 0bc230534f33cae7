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
	historySink sinkOptions
	historyDays int
	historySeed int64
	historyEnd  string
)

var historycmd = &cobra.Command{
	Use:   "history",
	Short: "generates days of heartbeats for a fleet with mixed reliability",
	Long:  `history writes heartbeats for twelve devices ending now (or --end). Healthy, intermittent and problematic devices report throughout, device_010 goes silent two weeks into the range and device_011 only appears in the final week.`,
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

		end := time.Now()
		if historyEnd != "" {
			if end, err = time.Parse(time.RFC3339, historyEnd); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out, err := openSink(ctx, historySink, cfg, log)
		if err != nil {
			return err
		}

		gen := simulate.NewHistory(historyDays, cfg.Uptime.Interval, historySeed)
		n, err := gen.Generate(ctx, end, out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}

		log.Info("history generated",
			zap.String("output", historySink.output),
			zap.Int("heartbeats", n),
			zap.Int("devices", len(gen.Fleet)),
			zap.Int("days", gen.Days))
		return nil
	},
}

var _ = func() (ret bool) {
	flags := historycmd.Flags()
	addSinkFlags(&historySink, flags, outputCSV)
	flags.IntVar(&historyDays, "days", simulate.DefaultDays, `number of days of history`)
	flags.Int64Var(&historySeed, "seed", 1, `random seed. equal seeds give equal output`)
	flags.StringVar(&historyEnd, "end", "", `RFC3339 end of the range. defaults to now`)
	return
}()

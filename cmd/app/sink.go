package main

import (
	"context"
	"fmt"
	"os"

	"uptimeboard/internal/adapters/csvfile"
	"uptimeboard/internal/adapters/httpclient"
	"uptimeboard/internal/adapters/mqtt"
	"uptimeboard/internal/adapters/redisstream"
	"uptimeboard/internal/config"
	"uptimeboard/internal/core/domain"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Output targets understood by --output.
const (
	outputCSV   = "csv"
	outputMQTT  = "mqtt"
	outputRedis = "redis"
	outputHTTP  = "http"
)

// sink is a simulate.Publisher that holds a connection or file.
type sink interface {
	Publish(ctx context.Context, hb domain.Heartbeat) error
	Close() error
}

// sinkOptions selects and addresses the output of a generator command.
type sinkOptions struct {
	output string
	file   string
	target string
}

func openSink(ctx context.Context, opts sinkOptions, cfg *config.Config, log *zap.Logger) (sink, error) {
	switch opts.output {
	case outputCSV:
		if opts.file == "" || opts.file == "-" {
			w, err := csvfile.NewWriter(os.Stdout)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		w, err := csvfile.Create(opts.file)
		if err != nil {
			return nil, err
		}
		return w, nil

	case outputMQTT:
		client, err := mqtt.NewClient(cfg.MQTT, log)
		if err != nil {
			return nil, err
		}
		return mqtt.NewPublisher(client, cfg.MQTT.QoS), nil

	case outputRedis:
		client, err := redisstream.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisstream.NewPublisher(client, cfg.Redis.Stream), nil

	case outputHTTP:
		if opts.target == "" {
			return nil, fmt.Errorf("--target is required for output %q", outputHTTP)
		}
		return httpclient.NewPublisher(opts.target), nil
	}
	return nil, fmt.Errorf("unknown output %q (want %s, %s, %s or %s)",
		opts.output, outputCSV, outputMQTT, outputRedis, outputHTTP)
}

func addSinkFlags(opts *sinkOptions, flags *pflag.FlagSet, defaultOutput string) {
	flags.StringVar(&opts.output, "output", defaultOutput, `where heartbeats go: csv, mqtt, redis or http`)
	flags.StringVar(&opts.file, "file", "-", `CSV path for --output csv. "-" writes to stdout`)
	flags.StringVar(&opts.target, "target", "http://localhost:8080", `API base url for --output http`)
}

package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uptimeboard/internal/adapters/csvfile"
	"uptimeboard/internal/adapters/http"
	"uptimeboard/internal/adapters/mqtt"
	"uptimeboard/internal/adapters/redisstream"
	"uptimeboard/internal/adapters/repository/memory"
	"uptimeboard/internal/config"
	"uptimeboard/internal/core/domain"
	"uptimeboard/internal/core/services"
	"uptimeboard/internal/ingest"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	compactEvery    = time.Minute
)

var backfillPath string

var servecmd = &cobra.Command{
	Use:   "serve",
	Short: "starts the uptime API and the enabled heartbeat consumers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var _ = func() (ret bool) {
	flags := servecmd.Flags()
	flags.String(flagName(config.KeyHTTPAddr), config.DefaultHTTPAddr, `host:port the API binds to. empty host binds to all interfaces`)
	flags.Duration(flagName(config.KeyPollInterval), config.DefaultPollInterval, `how often /ws clients receive a fresh table`)
	flags.Bool(flagName(config.KeyMQTTEnabled), false, `subscribe to heartbeats on the MQTT broker`)
	flags.String(flagName(config.KeyMQTTTopic), config.DefaultMQTTTopic, `MQTT topic filter to subscribe to`)
	flags.Bool(flagName(config.KeyRedisEnabled), false, `consume heartbeats from the Redis stream`)
	flags.Int(flagName(config.KeyQueueSize), config.DefaultQueueSize, `capacity of the ingest queue`)
	flags.StringVar(&backfillPath, "backfill", "", `CSV of device_id,timestamp rows loaded before serving`)

	bind(servecmd,
		config.KeyHTTPAddr, config.KeyPollInterval,
		config.KeyMQTTEnabled, config.KeyMQTTTopic,
		config.KeyRedisEnabled, config.KeyQueueSize,
	)
	return
}()

func serve(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := memory.NewDeviceRepository()
	svc := services.NewUptimeService(repo)
	if err := svc.Configure(cfg.Uptime.Interval, cfg.Uptime.Window); err != nil {
		return err
	}

	if backfillPath != "" {
		direct := ingest.Direct{Svc: svc}
		n, err := csvfile.Load(backfillPath, func(hb domain.Heartbeat) error {
			return direct.Submit(ctx, hb)
		})
		if err != nil {
			return err
		}
		log.Info("backfill loaded",
			zap.String("path", backfillPath), zap.Int("heartbeats", n), zap.Int("devices", repo.Count()))
	}

	worker := ingest.NewWorker(svc, cfg.Ingest.QueueSize, log)

	g := newGroup(stop, log)
	start := func(name string, fn func(ctx context.Context) error) {
		g.Go(ctx, name, fn)
	}

	start("ingest worker", func(ctx context.Context) error {
		worker.Run(ctx)
		return nil
	})
	start("compaction", func(ctx context.Context) error {
		compact(ctx, svc, log)
		return nil
	})

	handler := http.NewHandler(svc, worker, log)
	hub := http.NewHub(handler, cfg.HTTP.PollInterval)
	start("websocket hub", func(ctx context.Context) error {
		hub.Run(ctx)
		return nil
	})

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT, log)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		sub := mqtt.NewSubscriber(client, worker, cfg.MQTT.Topic, cfg.MQTT.QoS, log)
		start("mqtt subscriber", sub.Run)
	}

	if cfg.Redis.Enabled {
		client, err := redisstream.NewClient(ctx, cfg.Redis)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		defer client.Close()
		consumer := redisstream.NewConsumer(client, cfg.Redis, worker, log)
		start("redis consumer", consumer.Run)
	}

	if cfgPath != "" {
		start("config watcher", func(ctx context.Context) error {
			return config.Watch(ctx, cfgPath, log, func(next *config.Config) {
				if err := config.ApplyOverrides(next, v); err != nil {
					log.Error("config: overrides rejected on reload", zap.Error(err))
					return
				}
				if err := svc.Configure(next.Uptime.Interval, next.Uptime.Window); err != nil {
					log.Error("config: uptime parameters rejected", zap.Error(err))
					return
				}
				log.Info("uptime parameters updated",
					zap.Duration("interval", next.Uptime.Interval), zap.Duration("window", next.Uptime.Window))
			})
		})
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(http.RequestLogger(log), gin.Recovery())
	http.RegisterRoutes(r, handler, hub, worker)

	srv := &nethttp.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", cfg.HTTP.Addr),
			zap.Duration("interval", cfg.Uptime.Interval),
			zap.Duration("window", cfg.Uptime.Window))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("server shutdown failed", zap.Error(shutdownErr))
	}

	if groupErr := g.Wait(); err == nil {
		err = groupErr
	}
	log.Info("server stopped", zap.Int("devices", repo.Count()))
	return err
}

// compact trims history nothing can select any more, once per compactEvery.
func compact(ctx context.Context, svc *services.UptimeServiceImpl, log *zap.Logger) {
	t := time.NewTicker(compactEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := svc.Compact(now); n > 0 {
				log.Debug("history compacted", zap.Int("evicted", n))
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tywin1104/mc-dashboard/broker"
	"github.com/tywin1104/mc-dashboard/cache"
	"github.com/tywin1104/mc-dashboard/config"
	"github.com/tywin1104/mc-dashboard/dashboard"
	"github.com/tywin1104/mc-dashboard/metrics"
	"github.com/tywin1104/mc-dashboard/scheduler"
	"github.com/tywin1104/mc-dashboard/server"
	"github.com/tywin1104/mc-dashboard/server/sse"
	"github.com/tywin1104/mc-dashboard/snapshot"
	"github.com/tywin1104/mc-dashboard/watcher"
	"github.com/tywin1104/mc-dashboard/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API, the refresh schedule and the update worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, c, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		source, closeSource, err := newSource(ctx, c)
		if err != nil {
			return err
		}
		defer closeSource()

		var (
			reportCache dashboard.Cache
			serverCache server.ReportCache
		)
		if c.RedisConnStr != "" {
			cacheSvc := cache.NewService(cache.NewPool(c.RedisConnStr))
			defer cacheSvc.Close()
			if err := cacheSvc.Ping(); err != nil {
				log.WithFields(log.Fields{
					"err": err.Error(),
				}).Warn("Redis is not reachable yet. Reports are served from memory until it is")
			} else {
				log.Info("Redis connection established")
			}
			reportCache = cacheSvc
			serverCache = cacheSvc
		}

		metrics.MustRegister(prometheus.DefaultRegisterer)

		events := sse.NewServer(log.WithField("origin", "sse"))
		svc := dashboard.NewService(source, snapshot.NewStore(), reportCache, events, newMailer(c),
			dashboard.SettingsFromConfig(c), log.WithField("origin", "dashboard"))
		go events.Listen(ctx)

		// the first snapshot, later ones come from the schedule and the broker
		if err := svc.Bootstrap(ctx); err != nil {
			log.WithFields(log.Fields{
				"err": err.Error(),
			}).Warn("Starting without a snapshot. Retrying on the next poll")
		}

		if c.RabbitmqConnStr != "" {
			brokerLogger := log.WithField("origin", "broker")
			b, err := broker.NewService(c.RabbitmqConnStr, c.EventsExchange, c.EventsQueueName, brokerLogger)
			if err != nil {
				return fmt.Errorf("setup broker: %w", err)
			}
			defer b.Close()
			log.Info("RabbitMQ connection established")
			go b.WatchForReconnect(ctx)
			go worker.NewWorker(b, svc, log.WithField("origin", "worker")).Start(ctx)
		}

		sched := scheduler.New(svc, log.WithField("origin", "scheduler"))
		if err := sched.Start(schedule(c)); err != nil {
			return err
		}
		defer sched.Stop()

		watcher.WatchConfig(v, log.WithField("origin", "watcher"), func(updated *config.Config) {
			setLogLevel(updated.LogLevel)
			svc.UpdateSettings(dashboard.SettingsFromConfig(updated))
			if err := sched.Reload(schedule(updated)); err != nil {
				log.WithFields(log.Fields{
					"err": err.Error(),
				}).Error("Unable to reschedule jobs")
			}
		})

		// Set up http REST API server
		httpServer := server.NewService(svc, serverCache, events, c.JWTTokenSecret, log.WithField("origin", "server"))
		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.Listen(c.APIPort)
		}()

		select {
		case <-ctx.Done():
			log.Info("Signal received. Shutting down")
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithFields(log.Fields{
				"err": err.Error(),
			}).Error("Unable to shut down the http server cleanly")
		}
		return nil
	},
}

func schedule(c *config.Config) scheduler.Schedule {
	return scheduler.Schedule{
		PollInterval:   c.PollInterval,
		DigestSchedule: c.DigestSchedule,
	}
}

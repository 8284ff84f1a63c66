package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"
	"github.com/coder/quartz"
	"github.com/godbus/dbus/v5"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/delivery"
	"github.com/SoarinFerret/BreakWarden/internal/engine"
	"github.com/SoarinFerret/BreakWarden/internal/ipc"
	"github.com/SoarinFerret/BreakWarden/internal/observability"
	"github.com/SoarinFerret/BreakWarden/internal/report"
	"github.com/SoarinFerret/BreakWarden/internal/scheduler"
	"github.com/SoarinFerret/BreakWarden/internal/state"
	"github.com/SoarinFerret/BreakWarden/internal/telegram"
	httptransport "github.com/SoarinFerret/BreakWarden/internal/transport/http"
)

func main() {
	logger := slog.Make(sloghuman.Sink(os.Stderr)).Leveled(slog.LevelInfo).Named("breakwardend")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// check for argument to determine config location
	argPath := "/etc/breakwarden/config.toml"
	if len(os.Args) > 1 {
		argPath = os.Args[1]
	}
	logger.Info(ctx, "loading config", slog.F("path", argPath))
	cfg, err := config.LoadConfigFromFile(argPath)
	if err != nil {
		logger.Fatal(ctx, "load config", slog.Error(err))
	}
	cfg.ApplyEnv(os.LookupEnv)
	if len(cfg.Admins) == 0 {
		logger.Warn(ctx, "no admins configured, on-demand reports are refused for everyone")
	}

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info(ctx, "shutdown requested")
		cancel()
	}()

	clock := quartz.NewReal()
	registry := state.NewRegistry()
	attendance := engine.New(registry, cfg)
	generator := report.NewGenerator(registry, cfg)

	var sinks []delivery.Sink
	var dispatcher *telegram.Dispatcher
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal(ctx, "start telegram client", slog.Error(err))
		}
		sinks = append(sinks, telegram.NewChatSink(bot))
		dispatcher = telegram.NewDispatcher(telegram.DispatcherOptions{
			Logger:    logger.Named("telegram"),
			Clock:     clock,
			Config:    cfg,
			Sender:    bot,
			Registry:  registry,
			Engine:    attendance,
			Generator: generator,
		})
		if cfg.Telegram.WebhookURL != "" {
			url := cfg.Telegram.WebhookURL + cfg.Telegram.WebhookPath()
			if err := telegram.SetupWebhook(ctx, logger.Named("telegram"), bot, url); err != nil {
				logger.Error(ctx, "register webhook", slog.Error(err))
			}
		}
	} else {
		logger.Warn(ctx, "no bot token configured, chat transport disabled")
	}

	if cfg.Kafka.Enabled() {
		kafkaSink := delivery.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	sched, err := scheduler.New(scheduler.Options{
		Logger:    logger.Named("scheduler"),
		Clock:     clock,
		Config:    cfg,
		Registry:  registry,
		Generator: generator,
		Deliverer: delivery.NewFanout(sinks...),
	})
	if err != nil {
		logger.Fatal(ctx, "create scheduler", slog.Error(err))
	}

	var wg sync.WaitGroup

	// Reset jobs
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(ctx); err != nil {
			logger.Error(ctx, "scheduler", slog.Error(err))
		}
	}()

	// Webhook, health and metrics
	wg.Add(1)
	go func() {
		defer wg.Done()
		opts := httptransport.RouterOptions{
			Logger:  logger.Named("http"),
			Metrics: observability.Handler(),
		}
		if dispatcher != nil {
			opts.Token = cfg.Telegram.Token
			opts.Updates = dispatcher
		}
		srv := httptransport.NewServer(
			httptransport.DefaultServerConfig(cfg.Telegram.Listen),
			httptransport.NewRouter(opts),
		)
		if err := serveHTTP(ctx, logger, srv); err != nil {
			logger.Error(ctx, "http server", slog.Error(err))
			cancel()
		}
	}()

	// Admin interface on D-Bus
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := serveAdmin(ctx, cfg.IPC.SystemBus(), &ipc.AdminService{
			Logger:    logger.Named("ipc"),
			Clock:     clock,
			Registry:  registry,
			Generator: generator,
			Scheduler: sched,
		}); err != nil {
			logger.Warn(ctx, "admin interface unavailable", slog.Error(err))
		}
	}()

	wg.Wait()
	logger.Info(context.Background(), "shutdown complete")
}

func serveHTTP(ctx context.Context, logger slog.Logger, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", slog.F("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serveAdmin(ctx context.Context, system bool, svc *ipc.AdminService) error {
	var conn *dbus.Conn
	var err error
	if system {
		conn, err = dbus.ConnectSystemBus()
	} else {
		conn, err = dbus.ConnectSessionBus()
	}
	if err != nil {
		return err
	}
	defer conn.Close()
	return ipc.Serve(ctx, conn, svc)
}

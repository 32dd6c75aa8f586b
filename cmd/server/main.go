package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"punchcard/internal/closer"
	closerhandler "punchcard/internal/closer/handler"
	closermetrics "punchcard/internal/closer/metrics"
	"punchcard/internal/directory"
	editrequesthandler "punchcard/internal/editrequest/handler"
	editrequestmetrics "punchcard/internal/editrequest/metrics"
	editrequestservice "punchcard/internal/editrequest/service"
	requeststore "punchcard/internal/editrequest/store/request"
	"punchcard/internal/notify"
	"punchcard/internal/platform/config"
	"punchcard/internal/platform/httpserver"
	"punchcard/internal/platform/logger"
	platformmetrics "punchcard/internal/platform/metrics"
	platformredis "punchcard/internal/platform/redis"
	"punchcard/internal/timeclock/cache"
	timeclockhandler "punchcard/internal/timeclock/handler"
	timeclockmetrics "punchcard/internal/timeclock/metrics"
	timeclockservice "punchcard/internal/timeclock/service"
	eventstore "punchcard/internal/timeclock/store/event"
	httptransport "punchcard/internal/transport/http"
)

// main wires stores, services, and the HTTP surface. Business logic lives in
// the internal services; everything here is assembly and lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	zone, err := time.LoadLocation(cfg.CompanyTimezone)
	if err != nil {
		log.Error("invalid COMPANY_TIMEZONE", "zone", cfg.CompanyTimezone, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, requests, members, cleanup := buildStores(log, cfg)
	defer cleanup()

	statusCache := buildCache(log, cfg)
	sink := buildSink(ctx, log, cfg)

	timeclockSvc := timeclockservice.New(events,
		timeclockservice.WithLogger(log),
		timeclockservice.WithCache(statusCache),
		timeclockservice.WithMetrics(timeclockmetrics.New()),
		timeclockservice.WithZone(zone),
	)
	editRequestSvc := editrequestservice.New(requests, events, members,
		editrequestservice.WithLogger(log),
		editrequestservice.WithCache(statusCache),
		editrequestservice.WithSink(sink),
		editrequestservice.WithMetrics(editrequestmetrics.New()),
		editrequestservice.WithZone(zone),
	)
	closerSvc := closer.New(events, members, sink,
		closer.WithLogger(log),
		closer.WithMetrics(closermetrics.New()),
		closer.WithZone(zone),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       platformmetrics.New(),
		JWTSigningKey: []byte(cfg.JWTSigningKey),
		AdminToken:    cfg.AdminToken,
		Timeclock:     timeclockhandler.New(timeclockSvc, log),
		EditRequest:   editrequesthandler.New(editRequestSvc, log),
		Closer:        closerhandler.New(closerSvc, log, zone),
	})

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("punchcard listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildStores selects postgres when DATABASE_URL is set and falls back to the
// in-memory stores for local development.
func buildStores(log *slog.Logger, cfg config.Config) (eventstore.Store, requeststore.Store, directory.Directory, func()) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return eventstore.NewInMemory(), requeststore.NewInMemory(), directory.NewInMemory(), func() {}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	cleanup := func() { _ = db.Close() }
	return eventstore.NewPostgres(db), requeststore.NewPostgres(db), directory.NewPostgres(db), cleanup
}

func buildCache(log *slog.Logger, cfg config.Config) cache.StatusCache {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, status cache disabled", "error", err)
		return nil
	}
	if client == nil {
		return nil
	}
	log.Info("status cache enabled", "ttl", cfg.StatusCacheTTL)
	return cache.NewRedis(client, cfg.StatusCacheTTL)
}

func buildSink(ctx context.Context, log *slog.Logger, cfg config.Config) notify.Sink {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, notifications go to the log")
		return notify.NewSlogSink(log)
	}
	sink, err := notify.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Warn("kafka unavailable, notifications go to the log", "error", err)
		return notify.NewSlogSink(log)
	}
	log.Info("notification sink connected", "topic", cfg.KafkaTopic)
	return sink
}

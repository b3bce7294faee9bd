package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codetime/auditproxy/internal/config"
	"github.com/codetime/auditproxy/internal/console"
	"github.com/codetime/auditproxy/internal/metrics"
	"github.com/codetime/auditproxy/internal/proxy"
	"github.com/codetime/auditproxy/internal/sink"
	csvsink "github.com/codetime/auditproxy/internal/sink/csv"
	filesink "github.com/codetime/auditproxy/internal/sink/file"
)

const upstreamTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Structured logs go to stderr; stdout is reserved for the console
	// rendering of proxied traffic.
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	collector := metrics.GetCollector("codetime_proxy")

	sinks := []sink.Sink{
		filesink.NewSink(filepath.Join(cfg.LogDir, "traffic.jsonl")),
	}
	if cfg.LegacyCSV {
		sinks = append(sinks, csvsink.NewSink(filepath.Join(cfg.LogDir, "traffic.csv")))
	}
	if cfg.DatabaseURL != "" {
		ctx := log.Logger.WithContext(context.Background())
		relational, err := sink.NewRelational(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect relational sink")
		}
		if err := relational.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		sinks = append(sinks, relational)
	}
	fanout := sink.NewFanout(log.Logger, collector, sinks...)

	client := &http.Client{Timeout: upstreamTimeout}
	renderer := console.NewRenderer(os.Stdout)

	handler, err := proxy.NewHandler(cfg.Upstream, client, fanout, renderer, collector, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize proxy handler")
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             proxy.MaxBodyBytes,
		DisableStartupMessage: true,
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.All("/*", proxy.Gate(), handler.Handle)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info().Str("addr", addr).Str("upstream", cfg.Upstream).Msg("Starting proxy")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}

	// Let in-flight persistence finish before the sinks close.
	fanout.Close()
	client.CloseIdleConnections()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/2beens/notesapp/internal/config"
	"github.com/2beens/notesapp/internal/logging"
	"github.com/2beens/notesapp/internal/notes_bot"
	"github.com/2beens/notesapp/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting notes bot ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      botLogsPath(cfg.LogsPath),
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "notes-bot",
	})

	token := os.Getenv("NOTES_BOT_TOKEN")
	if token == "" {
		log.Fatalln("bot token not set. use NOTES_BOT_TOKEN")
	}

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("notes", "bot", promRegistry)

	launcher, err := notes_bot.NewLauncher(cfg.WebAppURL, metricsManager)
	if err != nil {
		log.Fatalf("new launcher: %s", err)
	}
	log.Debugf("web app url: %s", cfg.WebAppURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.BotMetricsPort != "" {
		metricsServer = &http.Server{
			Addr: net.JoinHostPort(cfg.PrometheusMetricsHost, cfg.BotMetricsPort),
			Handler: promhttp.InstrumentMetricHandler(
				promRegistry,
				promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Debugf(" > bot metrics listening on: [%s]", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("bot metrics, listen and serve: %s", err)
			}
		}()
	}

	metricsManager.GaugeLifeSignal.Set(1)
	if err := notes_bot.Run(ctx, token, launcher); err != nil {
		log.Errorf("run bot: %s", err)
	}
	metricsManager.GaugeLifeSignal.Set(0)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown bot metrics server: %s", err)
		}
	}
}

// botLogsPath puts the bot logs next to the service ones.
func botLogsPath(serviceLogsPath string) string {
	if serviceLogsPath == "" {
		return ""
	}
	return strings.TrimSuffix(serviceLogsPath, ".log") + "-bot.log"
}

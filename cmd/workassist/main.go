package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kwisener01/workassist/internal/api"
	"github.com/kwisener01/workassist/internal/dispatch"
	"github.com/kwisener01/workassist/internal/events"
	"github.com/kwisener01/workassist/internal/hotreload"
	"github.com/kwisener01/workassist/internal/keymanager"
	"github.com/kwisener01/workassist/internal/logging"
	"github.com/kwisener01/workassist/internal/metrics"
	"github.com/kwisener01/workassist/internal/persona"
	"github.com/kwisener01/workassist/internal/provider"
	"github.com/kwisener01/workassist/internal/session"
	"github.com/kwisener01/workassist/internal/telemetry"
	"github.com/kwisener01/workassist/pkg/config"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	if *showVersion {
		fmt.Printf("workassist v%s\n", version)
		return
	}

	cfg, err := config.LoadConfigFromFile(*configPath)
	if err != nil {
		log.Fatalf("failed to load config from %s: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()

	// Unlock the encrypted key store. A missing password is not fatal; the
	// service runs with assist disabled until a credential is supplied.
	km := keymanager.NewKeyManager(cfg.KeyStorePath)
	if password, err := config.ReadPassword(); err != nil {
		log.Printf("Warning: key store locked (%v); assist needs WORKASSIST_API_KEY or a credential via the API", err)
	} else if err := km.Unlock(password); err != nil {
		log.Printf("Warning: failed to unlock key store: %v", err)
	}

	// Credential precedence: environment over the encrypted store over the
	// config file.
	apiKey := cfg.Provider.APIKey
	if km.IsUnlocked() && km.HasCredential() {
		if stored, err := km.Credential(); err == nil && os.Getenv("WORKASSIST_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			apiKey = stored
		}
	}
	if apiKey == "" {
		log.Printf("No provider API key configured; assist endpoints will report unavailable")
	}

	m := metrics.NewMetrics()
	registry := persona.NewRegistry()
	prov := provider.NewAnthropicProvider(cfg.Provider.Endpoint, apiKey, cfg.Provider.Timeout)
	dispatcher := dispatch.NewDispatcher(registry, prov, dispatch.Params{
		Model:       cfg.Provider.Model,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
		Timeout:     cfg.Provider.Timeout,
	}, m)

	sessions := session.NewManager([]byte(cfg.Session.Secret), cfg.Session.IdleTTL, m)
	bus := events.NewBus()
	defer bus.Close()
	logManager := logging.NewManager()

	// Mirror significant log entries onto the event bus so the dashboard can
	// stream them.
	logManager.AddHandler(func(entry logging.LogEntry) {
		if entry.Level == logging.LogLevelInfo {
			return
		}
		_ = bus.Publish(&events.Event{
			Type:   events.EventTypeLogMessage,
			Source: entry.Source,
			Data: map[string]interface{}{
				"level":   entry.Level,
				"message": entry.Message,
			},
		})
	})

	// Initialize OpenTelemetry
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTelemetry(context.Background(), "workassist", cfg.Telemetry.Endpoint)
		if err != nil {
			log.Printf("Warning: Failed to initialize telemetry: %v", err)
		} else {
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					log.Printf("Error shutting down telemetry: %v", err)
				}
			}()
		}
	}

	apiServer := api.NewServer(cfg, registry, dispatcher, prov, sessions, bus, logManager, km, m)
	handler := apiServer.SetupRoutes()

	// Wrap handler with OpenTelemetry instrumentation
	if cfg.Telemetry.Enabled {
		handler = otelhttp.NewHandler(handler, "workassist-http-server")
	}

	// Watch the config file so credential and CORS edits apply without a
	// restart. Structural settings (port, session secret) still need one.
	watcher, err := hotreload.New(*configPath, func(next *config.Config) {
		if next.Provider.APIKey != "" {
			prov.SetAPIKey(next.Provider.APIKey)
		}
		apiServer.ApplyConfig(next)
		logManager.Info("config", "configuration reloaded", map[string]interface{}{
			"path": *configPath,
		})
		_ = bus.Publish(&events.Event{
			Type:   events.EventTypeConfigUpdated,
			Source: "hotreload",
			Data:   map[string]interface{}{"path": *configPath},
		})
	})
	if err != nil {
		log.Printf("Warning: config watcher disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("workassist API listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	km.Lock()
}

func printHelp() {
	fmt.Println("Usage: workassist [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -config   Path to configuration file (default: config.yaml)")
	fmt.Println("  -version  Show version information")
	fmt.Println("  -help     Show help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  WORKASSIST_API_KEY     Provider API key (ANTHROPIC_API_KEY also accepted)")
	fmt.Println("  WORKASSIST_PASSWORD    Password for the encrypted key store")
	fmt.Println("  WORKASSIST_HTTP_PORT   Override the HTTP listen port")
}

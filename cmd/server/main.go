package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/site-tracking/internal/api"
	"github.com/ignite/site-tracking/internal/config"
	"github.com/ignite/site-tracking/internal/pkg/logger"
	"github.com/ignite/site-tracking/internal/repository/cached"
	"github.com/ignite/site-tracking/internal/repository/postgres"
	"github.com/ignite/site-tracking/internal/service/tracking"
	"github.com/ignite/site-tracking/internal/sink"
	"github.com/ignite/site-tracking/internal/vendors"
)

// waiter is implemented by the event sinks that publish in the background.
type waiter interface{ Wait() }

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.LogPII)

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()
	log.Printf("Connected to database at %s", extractHost(cfg.Database.URL))

	var configs tracking.ConfigRepository = postgres.NewConfigRepo(db)
	var cache api.CacheInvalidator
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		cachedConfigs := cached.NewConfigRepo(configs, rdb, cfg.Redis.CacheTTL())
		configs, cache = cachedConfigs, cachedConfigs
		log.Printf("Config cache enabled at %s (ttl %s)", cfg.Redis.Addr, cfg.Redis.CacheTTL())
	}

	eventSink, err := newEventSink(cfg)
	if err != nil {
		log.Fatalf("Failed to set up event sink: %v", err)
	}

	svc := tracking.NewService(
		postgres.NewVisitRepo(db),
		postgres.NewEventRepo(db),
		configs,
		vendors.NewCatalog(),
		tracking.Options{Currency: cfg.Tracking.Currency, Sink: eventSink},
	)

	handlers := api.NewHandlers(svc, cache, api.NewHealthChecker(db, rdb), api.Options{
		SessionCookie:  cfg.Tracking.SessionCookie,
		SecureCookie:   cfg.Tracking.SecureCookie,
		AdminToken:     cfg.Server.AdminToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	server := api.NewServer(cfg.Server, handlers)

	go func() {
		log.Printf("Tracking API listening on %s", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if w, ok := eventSink.(waiter); ok {
		w.Wait()
	}
	log.Println("Server stopped")
}

// newEventSink publishes recorded events to SQS when a queue is configured,
// and otherwise runs the notifiers in-process. With neither, no sink is used.
func newEventSink(cfg *config.Config) (tracking.EventSink, error) {
	if cfg.Sink.QueueURL == "" && !notifiersConfigured(cfg.Notify) {
		return nil, nil
	}
	awsCfg, err := cfg.AWS.LoadAWS(context.Background())
	if err != nil {
		return nil, err
	}
	if cfg.Sink.QueueURL != "" {
		log.Printf("Publishing conversion events to %s", cfg.Sink.QueueURL)
		return sink.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Sink.QueueURL), nil
	}
	notifiers, err := sink.NewNotifiers(awsCfg, cfg.Notify)
	if err != nil {
		return nil, err
	}
	dispatcher := sink.NewDispatcher(notifiers...)
	log.Printf("Dispatching conversion events in-process to %v", dispatcher.Names())
	return sink.NewLocal(dispatcher), nil
}

func notifiersConfigured(n config.NotifyConfig) bool {
	return n.LeadEmail.Enabled || n.Sheets.WebhookURL != "" || n.Archive.Bucket != ""
}

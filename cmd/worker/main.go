package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/site-tracking/internal/config"
	"github.com/ignite/site-tracking/internal/pkg/logger"
	"github.com/ignite/site-tracking/internal/sink"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	log.Println("Starting conversion event worker...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.LogPII)

	if cfg.Sink.QueueURL == "" {
		log.Fatal("SINK_QUEUE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := cfg.AWS.LoadAWS(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	notifiers, err := sink.NewNotifiers(awsCfg, cfg.Notify)
	if err != nil {
		log.Fatalf("Failed to set up notifiers: %v", err)
	}
	dispatcher := sink.NewDispatcher(notifiers...)
	if len(dispatcher.Names()) == 0 {
		log.Println("No notifiers configured; messages will be acknowledged and dropped")
	}

	consumer := sink.NewConsumer(sqs.NewFromConfig(awsCfg), cfg.Sink.QueueURL, dispatcher)
	stopped := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(stopped)
	}()
	log.Printf("Consuming %s with notifiers %v", cfg.Sink.QueueURL, dispatcher.Names())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down worker...")
	consumer.Stop()
	// Let the in-flight batch finish; a long poll can take up to 20s.
	select {
	case <-stopped:
	case <-time.After(30 * time.Second):
		log.Println("Consumer did not stop in time")
	}
	cancel()
	log.Println("Worker stopped")
}

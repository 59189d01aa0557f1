package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/studyshop/internal/config"
	"github.com/joao-fontenele/studyshop/internal/email"
	"github.com/joao-fontenele/studyshop/internal/messaging"
	"github.com/joao-fontenele/studyshop/internal/receipt"
	"github.com/joao-fontenele/studyshop/internal/telemetry"
	"github.com/joao-fontenele/studyshop/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadWorker()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "receipt-worker", cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metricsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() { _ = metricsServer.Close() }()

	mailer := email.NewClient(cfg.Receipts.MailServiceURL, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	renderer := receipt.NewRenderer(receipt.Branding{
		Name:          cfg.Receipts.Brand,
		BankName:      cfg.Receipts.BankName,
		BankAccount:   cfg.Receipts.BankAccount,
		AccountHolder: cfg.Receipts.AccountHolder,
	})
	handler := worker.NewReceiptHandler(renderer, mailer, cfg.Receipts.AdminEmail, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting receipt worker", "transport", cfg.Receipts.Transport)

	if err := consume(ctx, cfg, handler.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}

func consume(ctx context.Context, cfg *config.Worker, handle messaging.Handler) error {
	switch cfg.Receipts.Transport {
	case "kafka":
		if len(cfg.Receipts.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka transport")
		}
		consumer := messaging.NewKafkaConsumer(cfg.Receipts.KafkaBrokers, cfg.Receipts.Topic, cfg.GroupID)
		defer func() { _ = consumer.Close() }()
		return consumer.Consume(ctx, handle)

	case "amqp":
		if cfg.Receipts.AMQPURL == "" {
			return errors.New("AMQP_URL is required for the amqp transport")
		}
		queue, err := messaging.DialAMQP(cfg.Receipts.AMQPURL, cfg.Receipts.Queue)
		if err != nil {
			return err
		}
		defer func() { _ = queue.Close() }()
		return queue.Consume(ctx, cfg.GroupID, handle)
	}
	return errors.New("receipt worker needs RECEIPT_TRANSPORT kafka or amqp")
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/studyshop/internal/auth"
	"github.com/joao-fontenele/studyshop/internal/catalog"
	"github.com/joao-fontenele/studyshop/internal/config"
	"github.com/joao-fontenele/studyshop/internal/coupons"
	"github.com/joao-fontenele/studyshop/internal/email"
	"github.com/joao-fontenele/studyshop/internal/messaging"
	"github.com/joao-fontenele/studyshop/internal/orders"
	"github.com/joao-fontenele/studyshop/internal/profiles"
	"github.com/joao-fontenele/studyshop/internal/receipt"
	"github.com/joao-fontenele/studyshop/internal/storefront"
	"github.com/joao-fontenele/studyshop/internal/telemetry"
	"github.com/joao-fontenele/studyshop/internal/worker"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadStorefront()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "storefront", cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(ctx) }()

	db, err := telemetry.OpenPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	publisher, closePublisher, err := newPublisher(cfg.Receipts, logger)
	if err != nil {
		logger.Error("failed to set up receipt transport", "error", err, "transport", cfg.Receipts.Transport)
		os.Exit(1)
	}
	defer func() { _ = closePublisher() }()
	receipts := messaging.NewBackgroundQueue(publisher, cfg.Receipts.SubmitTimeout, logger)

	couponRepo := coupons.NewRepository(db)
	validator := coupons.NewValidator(couponRepo)

	var opts []orders.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, order cache disabled", "error", err)
		} else {
			opts = append(opts, orders.WithCache(orders.NewRedisCache(rdb, cfg.CacheTTL)))
		}
	}

	service := orders.NewService(
		orders.NewOrderRepository(db, couponRepo),
		validator,
		profiles.NewRepository(db),
		receipts,
		logger,
		opts...,
	)

	router := storefront.Router{
		Orders:  orders.NewHandler(service, logger),
		Coupons: coupons.NewHandler(validator, couponRepo, logger),
		Catalog: catalog.NewHandler(catalog.NewProductRepository(db), logger),
		Auth:    auth.NewAuthenticator(cfg.JWTSecret),
		Metrics: metricsHandler,
		Ready:   db.PingContext,
		Logger:  logger,
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(router.Handler(), "storefront",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port, "receipt_transport", cfg.Receipts.Transport)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := receipts.Drain(ctx); err != nil {
		logger.Warn("receipt jobs still in flight at shutdown", "error", err)
	}
}

// newPublisher picks the receipt transport. "inline" renders and mails in
// this process through the mail relay.
func newPublisher(cfg config.Receipts, logger *slog.Logger) (messaging.Publisher, func() error, error) {
	switch cfg.Transport {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, nil, errors.New("KAFKA_BROKERS is required for the kafka transport")
		}
		p := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic)
		return p, p.Close, nil

	case "amqp":
		if cfg.AMQPURL == "" {
			return nil, nil, errors.New("AMQP_URL is required for the amqp transport")
		}
		q, err := messaging.DialAMQP(cfg.AMQPURL, cfg.Queue)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil

	case "inline":
		if cfg.MailServiceURL == "" {
			return nil, nil, errors.New("EMAIL_SERVICE_URL is required for the inline transport")
		}
		mailer := email.NewClient(cfg.MailServiceURL, &http.Client{
			Timeout:   cfg.SubmitTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
		handler := worker.NewReceiptHandler(receipt.NewRenderer(branding(cfg)), mailer, cfg.AdminEmail, logger)
		return messaging.NewInlinePublisher(handler.Handle), func() error { return nil }, nil
	}
	return nil, nil, errors.Errorf("unknown receipt transport %q", cfg.Transport)
}

func branding(cfg config.Receipts) receipt.Branding {
	return receipt.Branding{
		Name:          cfg.Brand,
		BankName:      cfg.BankName,
		BankAccount:   cfg.BankAccount,
		AccountHolder: cfg.AccountHolder,
	}
}

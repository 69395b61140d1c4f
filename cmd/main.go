package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"tableside/internal/config"
	"tableside/internal/database"
	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/services/cart"
	"tableside/internal/services/ledger"
	"tableside/internal/services/notification"
	"tableside/internal/services/order"
	"tableside/internal/services/payment"
	"tableside/internal/services/table"
)

func main() {
	var (
		mode = flag.String("mode", "", "Service mode (api, mailer)")
		port = flag.Int("port", 3000, "HTTP port")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": *port,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "api":
		if err := runAPI(ctx, cfg, log, *port); err != nil {
			log.Error("service_failed", "API service failed", requestID, err, nil)
			os.Exit(1)
		}
	case "mailer":
		if err := runMailer(ctx, cfg, log); err != nil {
			log.Error("service_failed", "Mailer failed", requestID, err, nil)
			os.Exit(1)
		}
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runAPI runs the ordering API: cart mutations, table workflow, order
// settlement, and the payment gateway callback.
func runAPI(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	gateway := payment.NewGateway(cfg.Payment)

	ledgerService := ledger.NewService(ledger.NewPostgresStore(db), log)
	ledgerHandler := ledger.NewHandler(ledgerService, log)

	cartService := cart.NewService(cart.NewPostgresStore(db), log)
	cartHandler := cart.NewHandler(cartService, log)

	tableService := table.NewService(table.NewPostgresStore(db), log)
	tableHandler := table.NewHandler(tableService, log)

	orderService := order.NewService(order.NewPostgresStore(db), publisher, gateway, ledgerService, cfg.SMTP.Admin, log)
	orderHandler := order.NewHandler(orderService, log)

	paymentService := payment.NewService(gateway, payment.NewPostgresStore(db), publisher, log)
	paymentHandler := payment.NewHandler(paymentService, cfg.Payment, log)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/ingredients", ledgerHandler.Routes())
	r.Mount("/tables", tableHandler.Routes(cartHandler.Routes()))
	r.Mount("/orders", orderHandler.Routes())
	r.Mount("/payments", paymentHandler.Routes())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		log.Info("service_started", fmt.Sprintf("API started on port %d", port), requestID, map[string]interface{}{
			"port": port,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// runMailer runs the email subscriber: it drains the emails queue and sends
// invoices, payment confirmations, and low stock warnings over SMTP.
func runMailer(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	mailer := notification.NewSMTPMailer(cfg.SMTP)
	subscriber := notification.NewSubscriber(conn, mailer, log)

	if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

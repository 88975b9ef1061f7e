package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/store"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("failed to shutdown meter provider", "error", err)
		}
	}()

	kv, err := store.Open(ctx, cfg)
	if err != nil {
		log.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	log.Info("store opened", "backend", cfg.StoreBackend)
	adapter := store.NewAdapter(kv, log, appMetrics)

	client, err := apiclient.New(cfg.APIBaseURL,
		apiclient.WithLogger(log),
		apiclient.WithMetrics(appMetrics),
		apiclient.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
	)
	if err != nil {
		log.Error("failed to create API client", "error", err)
		os.Exit(1)
	}
	log.Info("using commerce API", "base_url", client.BaseURL())

	products := catalog.NewService(client, log)
	cart := session.NewCartSession(ctx, adapter, cfg.CartKey,
		session.WithLogger(log),
		session.WithMetrics(appMetrics),
	)

	processor, err := checkout.NewProcessor(cfg.PaymentProcessor, client)
	if err != nil {
		log.Error("failed to create payment processor", "error", err)
		os.Exit(1)
	}

	events := publisher.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer events.Close()

	flow := checkout.NewFlow(client, cart, processor,
		checkout.WithLogger(log),
		checkout.WithMetrics(appMetrics),
		checkout.WithPublisher(events),
		checkout.WithUserID(cfg.UserID),
		checkout.WithOnSuccess(func(ctx context.Context) { cart.Clear(ctx) }),
	)
	defer flow.Close()

	router := h.NewRouter(h.Handlers{
		Products: h.NewProductHandler(products, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(cart, products, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(flow, cfg.RequestTimeout, log),
		Orders:   h.NewOrdersHandler(client, cfg.UserID, cfg.RequestTimeout),
		Store:    kv,
	}, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := h.NewServer(":"+cfg.HTTPPort, router)

	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

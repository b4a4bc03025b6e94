package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/account"
	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logging"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").WithError(err).Fatal("failed to load config")
	}
	log := logging.New(cfg.LogLevel)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slots, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		log.WithError(err).WithField("backend", cfg.StoreBackend).Fatal("failed to open slot storage")
	}
	defer slots.Close()
	log.WithField("backend", cfg.StoreBackend).Info("slot storage ready")

	client := api.NewClient(cfg.APIBaseURL,
		api.WithRateLimit(cfg.APIRateLimit, cfg.APIRateBurst),
		api.WithLogger(log),
	)

	m := metrics.New()

	cartStore := cart.Open(ctx, slots, log)
	unsubscribe := cartStore.Subscribe(m.ObserveCart)
	defer unsubscribe()
	m.ObserveCart(cartStore.State())

	sessions := auth.NewHolder(ctx, client, slots, log)

	products := catalog.NewClient(client, log)
	browser := catalog.NewBrowser(products)
	accounts := account.NewService(client, sessions, slots, log)

	flow := checkout.NewFlow(cartStore, sessions, client, log).WithNotifier(m)
	sessions.OnChange(flow.SessionChanged)
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		pub := publisher.NewOrderPublisher(brokers...)
		defer pub.Close()
		flow.WithNotifier(pub)
		log.WithField("brokers", brokers).Info("order events enabled")
	}

	router := h.NewRouter(h.Handlers{
		Cart:           h.NewCartHandler(cartStore, products, cfg.RequestTimeout, log),
		Products:       h.NewProductHandler(products, browser, sessions, cfg.RequestTimeout),
		Session:        h.NewSessionHandler(sessions, cfg.RequestTimeout),
		Checkout:       h.NewCheckoutHandler(flow, cfg.RequestTimeout),
		Account:        h.NewAccountHandler(accounts, cfg.RequestTimeout),
		Sessions:       sessions,
		Metrics:        m.Handler(),
		Instrument:     m.Middleware,
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     otelhttp.NewHandler(router, "storefront"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		return
	}

	log.Info("server exited")
}

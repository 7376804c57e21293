package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/xtding233/giftdraw/internal/admin"
	"github.com/xtding233/giftdraw/internal/api/grpcapi"
	"github.com/xtding233/giftdraw/internal/api/httpapi"
	"github.com/xtding233/giftdraw/internal/broadcast"
	"github.com/xtding233/giftdraw/internal/delivery"
	"github.com/xtding233/giftdraw/internal/gacha"
	"github.com/xtding233/giftdraw/internal/game"
	"github.com/xtding233/giftdraw/internal/platform/config"
	"github.com/xtding233/giftdraw/internal/platform/logging"
	"github.com/xtding233/giftdraw/internal/platform/metrics"
	"github.com/xtding233/giftdraw/internal/storage"
	"github.com/xtding233/giftdraw/internal/users"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	rules, err := game.NewLoader(cfg.CatalogPath).Rules()
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	st, err := storage.Open(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}()

	m := metrics.New()
	engine, err := gacha.NewEngine(rules, st, gacha.WithLogger(log), gacha.WithObserver(m))
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	reg := users.NewRegistry(st)

	deps := httpapi.Deps{
		Engine:          engine,
		Users:           reg,
		Admin:           admin.NewService(st, reg),
		Auth:            admin.NewAuth(cfg.AdminIDs, cfg.AdminToken),
		DeliveryTimeout: cfg.DeliveryTimeout,
		Metrics:         m,
		Log:             log,
	}
	if cfg.DeliveryEnabled() {
		bot := delivery.New(delivery.Config{
			BaseURL:       cfg.BotAPIBaseURL,
			Token:         cfg.BotToken,
			Timeout:       cfg.DeliveryTimeout,
			RatePerSecond: cfg.BroadcastRate,
		}, log)
		deps.Delivery = bot
		deps.Broadcaster = broadcast.New(broadcast.Config{
			RatePerSecond: cfg.BroadcastRate,
			Concurrency:   cfg.BroadcastConcurrency,
			SessionTTL:    cfg.BroadcastSessionTTL,
		}, bot, reg, log)
	} else {
		log.Info("bot token not set; gift delivery and broadcast are disabled")
	}
	api := httpapi.New(deps)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv := grpc.NewServer()
	health := grpcapi.Register(grpcSrv, grpcapi.NewService(engine, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errc := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		log.WithField("addr", cfg.GRPCAddr).Info("grpc listening")
		if err := grpcSrv.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc: %w", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errc:
	}

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	grpcSrv.GracefulStop()
	// let in-flight gift deliveries finish before the store closes
	api.Wait()
	return runErr
}

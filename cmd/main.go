package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Leganyst/counselling-platform/internal/auth"
	"github.com/Leganyst/counselling-platform/internal/config"
	"github.com/Leganyst/counselling-platform/internal/db"
	"github.com/Leganyst/counselling-platform/internal/logging"
	"github.com/Leganyst/counselling-platform/internal/model"
	"github.com/Leganyst/counselling-platform/internal/repository"
	"github.com/Leganyst/counselling-platform/internal/service"
	"github.com/Leganyst/counselling-platform/internal/transport/grpcapi"
	"github.com/Leganyst/counselling-platform/internal/transport/httpapi"
)

func main() {
	// 1. Конфиг из config.yaml и env.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 2. БД и миграции.
	gormDB, err := db.NewGormDB(&cfg.DBConfig)
	if err != nil {
		logger.Fatal("init db", zap.Error(err))
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		logger.Fatal("auto migrate", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("sql DB", zap.Error(err))
	}
	defer sqlDB.Close()

	// 3. Репозитории и сервисы.
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	counsellorRepo := repository.NewGormCounsellorRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)

	bookingSvc := service.NewBookingService(bookingRepo, counsellorRepo, eventRepo, logger,
		service.WithLocation(cfg.Location()),
	)
	counsellorSvc := service.NewCounsellorService(counsellorRepo, logger)

	// 4. HTTP и gRPC.
	router := httpapi.NewRouter(
		httpapi.NewHandler(bookingSvc, counsellorSvc, logger),
		auth.NewVerifier(cfg.JWTSecret),
		logger,
		httpapi.RouterConfig{AllowOrigins: cfg.CORSAllowOrigins, Production: cfg.IsProduction()},
	)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	grpcServer, healthServer := grpcapi.NewGRPCServer(bookingSvc, logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen grpc", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	// 5. Запуск до сигнала, затем грейсфул-шатдаун обоих серверов.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

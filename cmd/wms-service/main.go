package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/cache"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/events"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/handler"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/idgen"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/service"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/config"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/database"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/messaging"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("wms-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("wms-service", cfg.Server.Environment)
	log.Info().Str("role", cfg.Server.Role).Msg("starting WMS service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, repository.Schema); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema applied")
	}

	// Events are optional; without RabbitMQ the publisher drops them
	var publisher *events.WarehouseEventPublisher
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.URL != "" {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewWarehouseEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Warn().Msg("no RabbitMQ url configured, warehouse events are disabled")
	}

	locationCache, err := cache.NewLocationCache(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer locationCache.Close()

	ids, err := idgen.New(cfg.IDs.Node)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create id generator")
	}

	store := repository.NewSQLStore(db)
	services := handler.Services{
		Directory: service.NewDirectoryService(store, locationCache, publisher, log),
		Ledger:    service.NewLedgerService(store, ids, publisher, log),
		PickLists: service.NewPickListService(store, ids, publisher, log),
	}

	router := handler.NewRouter(services, handler.RouterConfig{
		ServiceName: "wms-service",
		Role:        cfg.Server.Role,
		CORSOrigins: cfg.Server.CORSOrigins,
		Health: func(ctx context.Context) map[string]interface{} {
			status := map[string]interface{}{"database": db.Health(ctx)}
			if rmq != nil {
				status["rabbitmq"] = rmq.Health()
			}
			return status
		},
	}, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error().Msg("server error")
	}
	log.Info().Msg("server stopped")
}

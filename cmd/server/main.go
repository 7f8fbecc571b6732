package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/livesync"
	"storefront/internal/notify"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront")

	tp, err := util.InitTracer("storefront", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()
	log.Printf("Store connected (driver=%s)", cfg.Store.Driver)

	var redisClient *redisclient.Client
	var submissions service.SubmissionCache
	var carts api.CartArchive
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		submissions = redisClient
		carts = redisClient
		log.Println("Redis connected")
	}

	var publisher broker.Publisher
	var alertWorker *worker.AlertWorker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	app := state.New(notify.NewCenter())

	if redisClient != nil {
		restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 5*time.Second)
		lines, err := redisClient.LoadCart(restoreCtx, api.DefaultCartSession)
		restoreCancel()
		if err != nil {
			log.Printf("Persisted cart not restored: %v", err)
		} else if len(lines) > 0 {
			app.Cart().Replace(lines)
			log.Printf("Restored persisted cart (%d lines)", len(lines))
		}
	}

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")

		settings := app.Settings()
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		alertWorker = worker.NewAlertWorker(consumer, settings.StoreName, settings.WhatsApp)
		go func() {
			if err := alertWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				log.Printf("Alert worker error: %v", err)
			}
		}()
	}

	orderService := service.NewOrderService(app, st, submissions, publisher)
	catalogService := service.NewCatalogService(app, st)

	syncCtx, syncCancel := context.WithCancel(context.Background())
	defer syncCancel()

	engine := livesync.NewEngine(app, st)
	if err := engine.Start(syncCtx, auth.NewLocal()); err != nil {
		log.Fatalf("Failed to start live sync: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(app, orderService, catalogService, carts)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	syncCancel()
	engine.Wait()

	workerCancel()
	if alertWorker != nil {
		alertWorker.Stop()
	}

	log.Println("Server exited")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(cfg.Store.DatabaseURL)
	case "firestore":
		// The client keeps this context for its connection lifetime.
		return store.NewFirestore(context.Background(), cfg.Store.FirestoreProject)
	case "memory":
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

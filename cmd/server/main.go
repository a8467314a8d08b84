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

	"stock-assistant/config"
	"stock-assistant/internal/api"
	"stock-assistant/internal/broker"
	"stock-assistant/internal/redisclient"
	"stock-assistant/internal/service"
	"stock-assistant/internal/session"
	"stock-assistant/internal/store"
	"stock-assistant/internal/util"
	"stock-assistant/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting stock assistant")

	tp, err := util.InitTracer("stock-assistant", cfg.Observ.JaegerEndpoint)
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

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	// dialogue sessions live in Redis so multi-step flows survive restarts
	rdb := redisClient.GetClient()
	ttl := cfg.Business.SessionTTL
	editSessions := session.NewRedis[service.EditSession](rdb, "edit", ttl)
	transferSessions := session.NewRedis[service.TransferSession](rdb, "transfer", ttl)
	paymentSessions := session.NewRedis[service.PaymentSession](rdb, "payment", ttl)
	purchaseSessions := session.NewRedis[service.PurchaseSession](rdb, "purchase", ttl)

	domainProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicLedger)
	defer domainProducer.Close()
	outboundProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOutbound)
	defer outboundProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(domainProducer, outboundProducer)

	stockService := service.NewStockService(db)
	financeService := service.NewFinanceService(db, cfg.Business.HubSellerID)
	reconcileService := service.NewReconcileService(db, editSessions, stockService, eventPublisher, eventPublisher)
	transferService := service.NewTransferService(db, transferSessions, eventPublisher, eventPublisher, cfg.Business.HubSellerID)
	paymentService := service.NewPaymentService(db, paymentSessions, financeService, eventPublisher, eventPublisher, cfg.Business.AdminChatID)
	purchaseService := service.NewPurchaseService(db, purchaseSessions, eventPublisher, cfg.Business.HubSellerID, cfg.Business.AdminChatID, cfg.Business.PurchaseLimit)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.ConsumerGroup)
	orderWorker := worker.NewOrderEventWorker(orderConsumer, reconcileService)
	go func() {
		if err := orderWorker.Start(workerCtx); err != nil {
			log.Printf("Order event worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(reconcileService, transferService, paymentService, purchaseService, stockService, financeService)
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

	workerCancel()
	orderWorker.Stop()

	log.Println("Server exited")
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Themagician24/neo-kora/internal/cache"
	"github.com/Themagician24/neo-kora/internal/cart"
	"github.com/Themagician24/neo-kora/internal/cartrepo"
	"github.com/Themagician24/neo-kora/internal/catalog"
	"github.com/Themagician24/neo-kora/internal/checkout"
	"github.com/Themagician24/neo-kora/internal/httpapi"
	"github.com/Themagician24/neo-kora/internal/order"
	"github.com/Themagician24/neo-kora/internal/payment"
	"github.com/Themagician24/neo-kora/internal/publisher"
	"github.com/Themagician24/neo-kora/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	HTTPPort          string
	MongoURI          string
	MongoDBName       string
	RedisAddr         string
	RedisPassword     string
	OrdersDBPath      string
	MigrationsDirPath string
	KafkaBrokers      []string
	PayPalBase        string
	PayPalClientID    string
	PayPalSecret      string
	StripeBase        string
	StripeSecretKey   string
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "storefront"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		OrdersDBPath:      getEnv("ORDERS_DB_PATH", "orders.db"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "internal/order/migrations"),
		KafkaBrokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		PayPalBase:        getEnv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID:    getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalSecret:      getEnv("PAYPAL_APP_SECRET", ""),
		StripeBase:        getEnv("STRIPE_API_URL", "https://api.stripe.com"),
		StripeSecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
		RequestTimeout:    30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	logg := logger.New(logger.Options{
		Service: "storefront",
		Env:     getEnv("APP_ENV", "dev"),
		Level:   getEnv("LOG_LEVEL", "info"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Durable cart storage
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	repo := cartrepo.NewMongoRepository(mongoDB)
	logg.Info("connected to mongodb", "uri", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	logg.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	// Order storage + outbox
	orderRepo, err := order.NewRepository(cfg.OrdersDBPath)
	if err != nil {
		log.Fatalf("Failed to open orders database: %v", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(cfg.MigrationsDirPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	cat := catalog.Default()
	store := cart.NewStore(repo, cache.NewRedisCache(redisClient), cat, logg)
	orderService := order.NewService(orderRepo, logg)
	sequencer := checkout.NewSequencer(store, cat, orderService, logg)
	go sequencer.Run(ctx)

	poller := publisher.NewOutboxPoller(orderRepo, logg, cfg.KafkaBrokers...)
	go poller.Run(ctx)

	providers := map[string]payment.Provider{
		"PayPal": payment.NewPayPalClient(cfg.PayPalBase, cfg.PayPalClientID, cfg.PayPalSecret),
		"Stripe": payment.NewStripeClient(cfg.StripeBase, cfg.StripeSecretKey),
	}
	paymentService := payment.NewService(providers, orderService, logg)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(store, cfg.RequestTimeout),
		httpapi.NewCheckoutHandler(sequencer, store, cat, cfg.RequestTimeout),
		httpapi.NewOrderHandler(orderService, paymentService, cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE endpoint streams indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("storefront listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down storefront")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := poller.Close(); err != nil {
		logg.Warn("outbox writer close failed", "error", err)
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		logg.Warn("mongo disconnect failed", "error", err)
	}
	logg.Info("storefront stopped")
}

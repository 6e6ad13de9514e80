package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"shop-service/internal/config"
	controllers "shop-service/internal/controllers/http"
	mmysql "shop-service/internal/infra/mysql"
	"shop-service/internal/infra/rabbitmq"
	"shop-service/internal/providers"
	mysqlrepo "shop-service/internal/repository/mysql"
	"shop-service/internal/services"
)

func main() {
	cfg := config.Load()

	db, err := mmysql.New(cfg.MySQL)
	if err != nil {
		log.Fatalf("db: connect: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	store := mysqlrepo.NewStore(db)

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.EventExchange)
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}
	defer publisher.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           0,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	registry := providers.NewRegistry(
		providers.NewBkash(cfg.Bkash, 10*time.Second),
		providers.NewStripe(cfg.Stripe, 10*time.Second),
	)

	productService := services.NewProductService(store)
	productService.SetRedisClient(redisClient)

	categoryService := services.NewCategoryService(store)
	categoryService.SetRedisClient(redisClient)

	recommendationService := services.NewRecommendationService(store, categoryService)

	orderService := services.NewOrderService(store, publisher)
	paymentService := services.NewPaymentService(store, registry, orderService, publisher)

	handler := controllers.NewHandler(productService, categoryService, recommendationService, orderService, paymentService)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler.RegisterRoutes(r)

	log.Printf("Starting shop service on port %s", cfg.HTTPPort)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server run: %v", err)
	}
}

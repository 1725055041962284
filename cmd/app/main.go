package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripora/booking/config"
	"github.com/tripora/booking/internal/bootstrap"
	"github.com/tripora/booking/internal/cache"
	"github.com/tripora/booking/internal/channel"
	"github.com/tripora/booking/internal/kafka"
	"github.com/tripora/booking/internal/pricing"
	"github.com/tripora/booking/internal/repository"
	"github.com/tripora/booking/internal/service/availability"
	"github.com/tripora/booking/internal/service/booking"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.AvailabilityCacheSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)
	promoRepo := repository.NewPromoRepository(pool)
	walletRepo := repository.NewWalletRepository(pool)

	locker := channel.NewManager(cfg.ChannelManager, cfg.Booking.HoldTTL())

	bookingService := booking.NewBookingService(
		bookingRepo,
		inventoryRepo,
		promoRepo,
		walletRepo,
		locker,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		cfg.Booking.HoldTTL(),
		pricing.Config{
			ServiceFeePercent:  cfg.Booking.ServiceFeePercent,
			ServiceFeeCapPaise: cfg.Booking.ServiceFeeCapPaise,
		},
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithHoldGuardTTL(time.Duration(cfg.Booking.HoldGuardTTLSeconds)*time.Second),
	)
	availabilityService := availability.NewAvailabilityService(inventoryRepo, redisCache)

	if err := bootstrap.Run(ctx, cfg, bookingService, availabilityService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tripora/booking/config"
	"github.com/tripora/booking/internal/cache"
	"github.com/tripora/booking/internal/channel"
	"github.com/tripora/booking/internal/email"
	"github.com/tripora/booking/internal/kafka"
	"github.com/tripora/booking/internal/pricing"
	"github.com/tripora/booking/internal/repository"
	"github.com/tripora/booking/internal/service/booking"
)

func main() {
	once := flag.Bool("once", false, "run a single expiration sweep and exit (for cron invocation)")
	dryRun := flag.Bool("dry-run", false, "report expirable bookings without transitioning them")
	flag.Parse()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.AvailabilityCacheSeconds)*time.Second)

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
	)

	if *once {
		sweep(ctx, bookingService, *dryRun)
		return
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, emailSender.Send); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepMinutes := cfg.Worker.ExpirationSweepMinutes
	if sweepMinutes <= 0 {
		sweepMinutes = 1
	}
	expireTicker := time.NewTicker(time.Duration(sweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expireTicker.C:
			sweep(ctx, bookingService, *dryRun)
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}

func sweep(ctx context.Context, svc booking.BookingUseCase, dryRun bool) {
	expired, err := svc.ExpireOverdueBookings(ctx, dryRun)
	if err != nil {
		log.Printf("expire bookings error: %v", err)
		return
	}
	if dryRun {
		log.Printf("dry run: %d bookings past their hold", len(expired))
		return
	}
	if len(expired) > 0 {
		log.Printf("expired %d bookings", len(expired))
	}
}

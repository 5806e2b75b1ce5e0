package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/thangnstse171771/cakestory-messaging/internal/api"
	cfgpkg "github.com/thangnstse171771/cakestory-messaging/internal/config"
	"github.com/thangnstse171771/cakestory-messaging/internal/directory"
	"github.com/thangnstse171771/cakestory-messaging/internal/events"
	"github.com/thangnstse171771/cakestory-messaging/internal/logger"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
	"github.com/thangnstse171771/cakestory-messaging/internal/service"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := cfgpkg.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zl.Sync()

	// Mongo client
	mc, err := repository.NewMongoClient(cfg)
	if err != nil {
		zl.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database(cfg.Mongo.Database)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := repository.EnsureIndexes(ctx, db, cfg); err != nil {
			cancel()
			zl.Fatalw("ensure indexes", "err", err)
		}
		cancel()
	}

	// Redis client backing the identity cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Kafka publisher for conversation lifecycle events
	var pub events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		pub = kp
	}

	// Repositories & services
	accounts := repository.NewMongoAccountRepository(db.Collection(cfg.Mongo.AccountsCollection))
	convs := repository.NewMongoConversationRepository(db.Collection(cfg.Mongo.ConversationsCollection))
	inboxes := repository.NewMongoInboxRepository(db.Collection(cfg.Mongo.InboxesCollection))

	dir := directory.New(accounts, directory.NewRedisCache(rdb, cfg.IdentityTTL), zl)
	writer := service.NewInboxWriter(inboxes, zl)
	convSvc := service.NewConversationService(convs, accounts, dir, writer, pub, zl)
	memberSvc := service.NewMembershipService(convs, dir, writer, pub, zl)
	reconciler := service.NewReconciler(convs, inboxes, zl)

	app := api.NewServer(cfg, convSvc, memberSvc, reconciler, dir, zl)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			zl.Fatalw("server listen", "err", err)
		}
	}()
	zl.Infow("messaging service started", "port", cfg.App.Port)

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	zl.Info("messaging service stopped")
}

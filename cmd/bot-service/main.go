package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"remindbot/internal/botapi"
	"remindbot/internal/config"
	"remindbot/internal/dialog"
	"remindbot/internal/dispatch"
	"remindbot/internal/kafka"
	"remindbot/internal/logger"
	"remindbot/internal/store"
	"remindbot/internal/telegram"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger(cfg.LogDir)
	defer log.Close()

	if cfg.Bot.Token == "" {
		log.Fatal("APP", "BOT_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- SQLite setup ---
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.Path)
	if err != nil {
		log.Fatal("APP", fmt.Sprintf("Failed to open database %s: %v", cfg.Database.Path, err))
	}
	defer sqldb.Close()

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := store.Migrate(ctx, bunDB); err != nil {
		log.Fatal("APP", fmt.Sprintf("Migration failed: %v", err))
	}
	log.Info("APP", fmt.Sprintf("Database ready at %s", cfg.Database.Path))

	db := &store.DB{Bun: bunDB}

	// --- Session store ---
	sessions, err := buildSessionStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("APP", fmt.Sprintf("Failed to initialize session store: %v", err))
	}

	// --- Telegram client ---
	bot, err := telegram.NewBot(cfg.Bot.Token, cfg.Bot.APIBase)
	if err != nil {
		log.Fatal("APP", fmt.Sprintf("Failed to connect to Telegram: %v", err))
	}
	log.Info("APP", fmt.Sprintf("Authorized on Telegram as @%s", bot.Self.UserName))

	// --- Dialog engine ---
	engine := dialog.NewEngine(db, sessions, log, cfg.Timezones.Default, cfg.Timezones.Available)

	// --- Dispatcher ---
	dispatcher := dispatch.NewDispatcher(db, telegram.NewNotifier(bot), log, cfg.Timezones.Default, cfg.Dispatch.Interval)
	if cfg.Kafka.Enabled {
		if !cfg.Kafka.MockMode {
			if err := kafka.CreateTopicIfNotExists(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
				log.Warn("KAFKA", fmt.Sprintf("Failed to ensure topic %s: %v", cfg.Kafka.Topic, err))
			}
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.MockMode)
		defer producer.Close()
		dispatcher.Audit = producer
		log.Info("KAFKA", fmt.Sprintf("Delivery audit enabled on topic %s (mock=%v)", cfg.Kafka.Topic, cfg.Kafka.MockMode))
	}
	go dispatcher.Run(ctx)

	// --- Transport ---
	router := botapi.NewRouter(engine, bot, log)

	var server *http.Server
	if cfg.Bot.Mode == "webhook" {
		handler := botapi.NewHandler(router)
		server = &http.Server{
			Addr:         cfg.Server.Port,
			Handler:      handler.Routes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
		go func() {
			log.Info("HTTP", fmt.Sprintf("Webhook server listening on %s", cfg.Server.Port))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTP", fmt.Sprintf("Server failed: %v", err))
			}
		}()
	} else {
		poller := botapi.NewPoller(router, bot)
		go poller.Run(ctx)
	}

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")

	<-stop
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()

	if server != nil {
		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
		}
	}

	log.Info("APP", "Shutdown complete")
}

func buildSessionStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (dialog.SessionStore, error) {
	if cfg.Sessions.Backend != "redis" {
		return dialog.NewMemorySessionStore(), nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Sessions.RedisAddr,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Sessions.RedisAddr, err)
	}

	log.Info("APP", fmt.Sprintf("Using redis session store at %s", cfg.Sessions.RedisAddr))
	return dialog.NewRedisSessionStore(redisClient, cfg.Sessions.TTL), nil
}

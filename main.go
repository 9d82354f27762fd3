package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mac-card-bot/internal/entitlement"
	"mac-card-bot/internal/handlers"
	"mac-card-bot/internal/middleware"
	"mac-card-bot/internal/plans"
	"mac-card-bot/internal/prodamus"
	"mac-card-bot/internal/scheduler"
	"mac-card-bot/internal/webhook"
	"mac-card-bot/store"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load("config.env")

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			log.Warn().Str("value", v).Msg("invalid REDIS_DB, using 0")
		} else {
			redisDB = parsed
		}
	}

	redisAddr := fmt.Sprintf("%s:%s", env("REDIS_HOST", "localhost"), env("REDIS_PORT", "6379"))
	rdb, err := store.NewRedisClient(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB, "mac_card_bot")
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	convoTTL := 48
	if v := os.Getenv("CONVO_TTL_HOURS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			convoTTL = parsed
		}
	}
	convoStore := store.NewRedisConvoStore(rdb, convoTTL)

	pgStore, err := store.NewPostgresStore(ctx, os.Getenv("POSTGRES_DSN"))
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pgStore.Close()

	if path := os.Getenv("SNAPSHOT_IMPORT"); path != "" {
		imported, skipped, err := store.ImportSnapshot(path, pgStore, pgStore)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("snapshot import failed")
		}
		log.Info().Int("imported", imported).Int("skipped", skipped).Msg("snapshot imported")
	}

	created, skipped, err := plans.Ensure(pgStore)
	if err != nil {
		log.Fatal().Err(err).Msg("plan bootstrap failed")
	}
	log.Info().Int("created", created).Int("skipped", skipped).Msg("plan catalog ready")

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal().Msg("BOT_TOKEN is not set")
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Minute,
	}
	pollTimeout := 50 * time.Second

	b, err := bot.New(
		botToken,
		bot.WithHTTPClient(pollTimeout, httpClient),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("bot creation failed")
	}

	entitle := entitlement.NewService(pgStore, pgStore, pgStore)

	payments := prodamus.New(prodamus.Config{
		MerchantURL: os.Getenv("PRODAMUS_MERCHANT_URL"),
		SecretKey:   os.Getenv("PRODAMUS_SECRET_KEY"),
		TestMode:    os.Getenv("PRODAMUS_TEST_MODE") == "true",
		WebhookURL:  os.Getenv("PRODAMUS_WEBHOOK_URL"),
		SuccessURL:  os.Getenv("PRODAMUS_SUCCESS_URL"),
		ReturnURL:   os.Getenv("PRODAMUS_RETURN_URL"),
	})

	reminderDelay := 24 * time.Hour
	if v := os.Getenv("REMINDER_DELAY_HOURS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			reminderDelay = time.Duration(parsed) * time.Hour
		}
	}

	sched := scheduler.NewScheduler(b, convoStore, scheduler.Config{
		ReminderDelay: reminderDelay,
	})
	sched.Start()
	defer sched.Stop()

	h := handlers.NewHandlers(
		pgStore, pgStore, pgStore, pgStore, pgStore, pgStore,
		convoStore,
		entitle,
		payments,
		sched,
		handlers.Config{
			CardsRoot:  env("CARDS_ROOT", "media/images"),
			ConsultURL: "https://t.me/" + env("MASTER_NAME", "master"),
			BaseURL:    os.Getenv("BASE_URL"),
		},
	)

	notifier := &handlers.PaymentNotifier{Sender: b, Profiles: pgStore, Plans: pgStore}
	server := webhook.NewServer(pgStore, pgStore, payments, entitle, notifier)
	go func() {
		addr := env("WEBHOOK_ADDR", ":8080")
		log.Info().Str("addr", addr).Msg("webhook server listening")
		if err := server.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("webhook server failed")
		}
	}()

	middlewares := middleware.NewMiddlewares(pgStore)
	handlerChain := middlewares.EnsureProfileMiddleware(
		middlewares.ClassifyMessageMiddleware(
			h.MainHandler,
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	log.Info().Msg("bot started, press Ctrl+C to stop")
	b.Start(ctx)
}

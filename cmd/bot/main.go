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

	"prayer_notification_bot/internal/app"
	"prayer_notification_bot/internal/clock"
	"prayer_notification_bot/internal/domain/prayer"
	domainReminder "prayer_notification_bot/internal/domain/reminder"
	"prayer_notification_bot/internal/infra/aladhan"
	"prayer_notification_bot/internal/infra/cache"
	"prayer_notification_bot/internal/infra/config"
	idb "prayer_notification_bot/internal/infra/database"
	"prayer_notification_bot/internal/infra/httpapi"
	"prayer_notification_bot/internal/infra/logger"
	"prayer_notification_bot/internal/infra/queue"
	"prayer_notification_bot/internal/infra/scheduler"
	"prayer_notification_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Prayer Notification Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":  cfg.Environment,
		"admin_id":     cfg.AdminTelegramID,
		"store_driver": cfg.StoreDriver,
	}).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscriber store
	subscriberRepo, closeStore, err := idb.OpenSubscriberRepository(ctx, idb.StoreConfig{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open subscriber store")
	}
	defer closeStore()
	mainLogger.Info("Subscriber store ready")

	// Prayer times provider, optionally behind the Redis cache
	var provider prayer.Provider = aladhan.NewClient(aladhan.Config{
		BaseURL:    cfg.PrayerAPIBaseURL,
		Method:     cfg.PrayerAPIMethod,
		School:     cfg.PrayerAPISchool,
		RatePerSec: cfg.PrayerAPIRatePerSec,
	}, logger.Component("aladhan"))
	if cfg.RedisAddress != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		defer redisClient.Close()
		provider = cache.NewRedisProvider(provider, redisClient, cfg.PrayerCacheTTL, logger.Component("prayer_cache"))
		mainLogger.Info("Prayer times cache enabled")
	}

	// Optional reminder event stream
	var publisher *queue.Manager
	if cfg.AMQPURL != "" {
		publisher, err = queue.NewManager(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to RabbitMQ")
		}
		defer publisher.Close()
		mainLogger.WithField("exchange", cfg.AMQPExchange).Info("Reminder publishing enabled")
	}

	// Telegram bot
	botLogger := logger.Component("telebot")
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"message": c.Text(),
					"sender":  c.Sender().ID,
					"chat":    c.Chat().ID,
				})
			}
			entry.Error("Telegram handler failed")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	telegramClient := telegram.NewTelebotAdapter(bot)
	prompts := telegram.NewPermissionPrompts()

	sinkLogger := logger.Component("reminder_sink")
	newSink := func(telegramID int64) domainReminder.Sink {
		var sink domainReminder.Sink = telegram.NewChatSink(telegramClient, prompts, telegramID, sinkLogger)
		if publisher != nil {
			sink = queue.NewPublishingSink(sink, publisher, telegramID, sinkLogger)
		}
		return sink
	}

	// Services
	subscriberService := app.NewSubscriberService(subscriberRepo, cfg.DefaultLeadMinutes)
	adminService := app.NewAdminService(subscriberRepo, cfg.AdminTelegramID)
	notificationService := app.NewNotificationServiceImpl(
		subscriberRepo,
		provider,
		newSink,
		clock.Real{},
		cfg.PermissionTimeout,
		logger.Component("notification_service"),
	)

	// Handlers
	handlerLogger := logger.Component("telegram_handlers")
	telegram.RegisterPermissionHandlers(bot, prompts, handlerLogger)
	telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, subscriberService, notificationService, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, adminService, cfg.AdminTelegramID, handlerLogger)
	mainLogger.Info("Telegram handlers registered")

	go bot.Start()

	// Restore schedules once the bot can receive permission answers.
	if err := notificationService.Resume(ctx); err != nil {
		mainLogger.WithError(err).Error("Could not resume reminder schedules")
	}

	notifScheduler := scheduler.NewNotificationScheduler(notificationService, logger.Component("scheduler"), cfg.CronSpecDayRollover)
	if err := notifScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start day rollover scheduler")
	}

	// HTTP API
	apiLogger := logger.Component("http")
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.NewPrayerHandler(provider, notificationService, apiLogger), apiLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		apiLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			apiLogger.WithError(err).Error("HTTP server stopped")
		}
	}()

	mainLogger.Info("Application setup complete")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	notifScheduler.Stop()
	notificationService.Shutdown()
	bot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	cancel()
	mainLogger.Info("Application shut down gracefully")
}

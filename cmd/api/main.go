package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnel_backend/internal/activities"
	"funnel_backend/internal/adapters"
	"funnel_backend/internal/automation"
	"funnel_backend/internal/chatbot"
	"funnel_backend/internal/contacts"
	"funnel_backend/internal/email"
	"funnel_backend/internal/events"
	"funnel_backend/internal/funnels"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/http/router"
	"funnel_backend/internal/notification"
	"funnel_backend/internal/scheduler"
	"funnel_backend/internal/whatsapp"
	"funnel_backend/platform/config"
	"funnel_backend/platform/db"
	"funnel_backend/platform/keylock"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

const dealLockPrefix = "funnel:deal-lock:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := db.Retry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	locker, closeLocker := initDealLocker(cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	queueClient, closeQueue := initQueueClient(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	funnelsModule := funnels.NewModule(pool, locker, eventBus, val, cfg, log)
	contactsModule := contacts.NewModule(pool, val, log)
	activitiesModule := activities.NewModule(pool, val, log)
	chatbotModule := chatbot.NewModule(pool, val, log)

	dealStore := adapters.NewAutomationDealStore(funnelsModule.Repository())
	activityStore := adapters.NewAutomationActivityStore(activitiesModule.Repository())
	automationModule := automation.NewModule(automation.ModuleDeps{
		Pool:      pool,
		Deals:     dealStore,
		Funnels:   dealStore,
		Contacts:  adapters.NewAutomationContactStore(contactsModule.Repository()),
		Notes:     activityStore,
		Tasks:     activityStore,
		Chatbot:   adapters.NewAutomationChatbotLauncher(chatbotModule.Service()),
		Locker:    locker,
		EventBus:  eventBus,
		Validator: val,
		Config:    cfg,
		Log:       log,
	})

	// funnels -> automation for dispatch, automation -> funnels for nested moves
	engine := automationModule.Engine()
	funnelsModule.Service().SetAutomationDispatcher(adapters.NewFunnelsAutomationDispatcher(engine))
	engine.SetStageMover(adapters.NewAutomationStageMover(funnelsModule.Service(), log))

	if client := whatsapp.NewClient(cfg, log); client != nil {
		engine.SetMessageSender(client)
		log.Info("whatsapp messaging enabled")
	} else {
		log.Warn("WHATSAPP_URL not configured; send_message actions are logged only")
	}

	if sender := email.NewSMTPSender(cfg); sender != nil {
		engine.SetNotifier(adapters.NewAutomationNotifier(sender))
		log.Info("smtp notifications enabled", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("SMTP not configured; notify_user actions are logged only")
	}

	if queueClient != nil {
		engine.SetTaskReminderScheduler(queueClient)
		chatbotModule.Service().SetExecutionEnqueuer(adapters.NewChatbotExecutionEnqueuer(queueClient))
	}

	notificationModule := notification.New(adapters.NewDealTimelineWriter(activitiesModule.Repository()), log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			funnelsModule,
			automationModule,
			contactsModule,
			activitiesModule,
			chatbotModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDealLocker shares deal locks through Redis when it is configured so
// several API replicas serialise on the same deal. A single replica falls
// back to in-process locks.
func initDealLocker(cfg *config.Config, log *logger.Logger) (keylock.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; deal locks are process-local")
		return keylock.NewMemory(), nil
	}

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; deal locks are process-local", "error", err)
		return keylock.NewMemory(), nil
	}
	if opts.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		clone := opts.TLSConfig.Clone()
		clone.InsecureSkipVerify = true
		opts.TLSConfig = clone
	}

	client := redis.NewClient(opts)
	return keylock.NewRedis(client, dealLockPrefix, cfg.GetAutomationLockTTL()), func() {
		_ = client.Close()
	}
}

func initQueueClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; task reminders and chatbot queueing disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

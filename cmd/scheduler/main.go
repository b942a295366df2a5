package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	activitiesrepo "funnel_backend/internal/activities/repository"
	"funnel_backend/internal/adapters"
	chatbotrepo "funnel_backend/internal/chatbot/repository"
	"funnel_backend/internal/email"
	"funnel_backend/internal/scheduler"
	"funnel_backend/platform/config"
	"funnel_backend/platform/db"
	"funnel_backend/platform/logger"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var sender email.Sender = email.NoopSender{}
	if smtp := email.NewSMTPSender(cfg); smtp != nil {
		sender = smtp
	} else {
		log.Warn("SMTP not configured; task reminders are logged only")
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewChatbotDispatcher(
		adapters.NewChatbotOutbox(chatbotrepo.New(pool)),
		client,
		log,
		cfg.GetChatbotDispatchInterval(),
		cfg.GetChatbotExecutionTTL(),
	)
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, adapters.NewTaskReminderSource(activitiesrepo.New(pool)), sender, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

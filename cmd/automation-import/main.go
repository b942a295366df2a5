package main

import (
	"context"
	"flag"
	"os"

	"funnel_backend/internal/adapters"
	"funnel_backend/internal/automation"
	"funnel_backend/internal/events"
	funnelsrepo "funnel_backend/internal/funnels/repository"
	"funnel_backend/platform/config"
	"funnel_backend/platform/db"
	"funnel_backend/platform/keylock"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"
)

func main() {
	path := flag.String("file", "", "YAML file with the automation rules to import")
	flag.Parse()

	cfg, err := config.LoadWorker()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	if *path == "" {
		log.Error("missing -file")
		os.Exit(2)
	}
	log.Info("starting automation rule import", "file", *path)

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Error("failed to read rule file", "error", err)
		os.Exit(1)
	}
	reqs, err := parseRuleFile(data)
	if err != nil {
		log.Error("failed to parse rule file", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	// Only rule validation and storage run here; no events are dispatched.
	dealStore := adapters.NewAutomationDealStore(funnelsrepo.New(pool))
	module := automation.NewModule(automation.ModuleDeps{
		Pool:      pool,
		Deals:     dealStore,
		Funnels:   dealStore,
		Locker:    keylock.NewMemory(),
		EventBus:  events.NewInMemoryBus(log),
		Validator: validator.New(),
		Config:    cfg,
		Log:       log,
	})

	created, err := module.Service().ImportRules(ctx, reqs)
	for _, rule := range created {
		log.Info("imported rule", "ruleId", rule.ID, "name", rule.Name, "trigger", rule.TriggerType, "action", rule.ActionType)
	}
	if err != nil {
		log.Error("import stopped", "imported", len(created), "total", len(reqs), "error", err)
		os.Exit(1)
	}
	log.Info("automation rule import complete", "imported", len(created))
}

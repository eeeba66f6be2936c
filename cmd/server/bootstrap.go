package main

import (
	"context"
	"fmt"
	"time"

	"news-trader/internal/broker"
	"news-trader/internal/classify"
	"news-trader/internal/config"
	"news-trader/internal/fetcher"
	"news-trader/internal/notify"
	"news-trader/internal/predict"
	"news-trader/internal/scheduler"
	"news-trader/internal/scrape"
	"news-trader/internal/server"
	badgerstore "news-trader/internal/storage/badger"
	"news-trader/internal/trading"
)

// app holds the explicitly constructed dependency graph. Everything is
// created once here and passed down; no package-level singletons.
type app struct {
	db          *badgerstore.DB
	coordinator *scrape.Coordinator
	engine      *predict.Engine
	sizer       *trading.Sizer
	server      *server.Server
	scheduler   *scheduler.Scheduler
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := badgerstore.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	ledger := badgerstore.NewLedger(db)
	articles := badgerstore.NewArticles(db)

	yahoo := fetcher.NewYahoo(time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second)
	coordinator := scrape.NewCoordinator(yahoo, ledger, articles, scrape.Options{
		Workers:     cfg.Scrape.Workers,
		Stagger:     time.Duration(cfg.Scrape.StaggerSeconds) * time.Second,
		LinkRetries: cfg.Scrape.LinkRetries,
		BackoffMin:  time.Duration(cfg.Scrape.BackoffMinSecs) * time.Second,
		BackoffMax:  time.Duration(cfg.Scrape.BackoffMaxSecs) * time.Second,
		Source:      cfg.Scrape.Source,
	})

	classifier := classify.NewOpenAI(cfg.LLM.Model)
	engine := predict.NewEngine(ledger, articles, classifier, notify.NewMailer(), predict.Options{
		MinArticleBytes: cfg.Predict.MinArticleBytes,
		MinYesVotes:     cfg.Predict.MinYesVotes,
		TopCounts:       cfg.Predict.TopCounts,
		Recipient:       cfg.Predict.Recipient,
	})

	alpaca, err := broker.NewAlpaca(broker.Params{
		Mode:    cfg.Mode,
		BaseURL: cfg.Trading.BaseURL,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}
	sizer := trading.NewSizer(alpaca, trading.Options{
		SafeguardDollars: cfg.Trading.SafeguardDollars,
		MaxUsableDollars: cfg.Trading.MaxUsableDollars,
	})

	sched, err := scheduler.New(ctx, coordinator, engine, sizer, scheduler.Options{
		ScrapeCron:    cfg.Schedule.ScrapeCron,
		LiquidateCron: cfg.Schedule.LiquidateCron,
		Symbols:       cfg.Schedule.Symbols,
		LookbackHours: cfg.Schedule.LookbackHours,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &app{
		db:          db,
		coordinator: coordinator,
		engine:      engine,
		sizer:       sizer,
		server:      server.New(coordinator, engine, sizer),
		scheduler:   sched,
	}, nil
}

func (a *app) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	return a.db.Close()
}

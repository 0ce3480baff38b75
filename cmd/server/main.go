package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mhenke/mailjet-bridge/internal/api"
	"github.com/mhenke/mailjet-bridge/internal/config"
	"github.com/mhenke/mailjet-bridge/internal/mailjet"
	"github.com/mhenke/mailjet-bridge/internal/store"
	"github.com/mhenke/mailjet-bridge/internal/suppression"
	"github.com/mhenke/mailjet-bridge/internal/webhook"
	"github.com/mhenke/mailjet-bridge/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	queries := store.New(pool)
	callback := suppression.NewCallback(queries)

	dsn, err := mailjet.ParseDSN(cfg.TransportDSN)
	if err != nil {
		log.Fatalf("transport dsn error: %v", err)
	}

	factory := &mailjet.Factory{
		Callback:  callback,
		Campaigns: &campaignResolver{queries: queries},
	}
	transport, err := factory.Create(dsn)
	if err != nil {
		log.Fatalf("transport error: %v", err)
	}

	processor := webhook.NewProcessor(dsn.Scheme, callback)

	router := gin.Default()
	h := api.RegisterRoutes(router, queries, transport, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := worker.New(queries, h, cfg.WorkerConcurrency)

	switch cfg.Mode {
	case "worker":
		log.Println("starting in worker-only mode")
		w.Start(ctx) // blocks until ctx cancelled
	case "api":
		// API-only: no embedded worker goroutines; scale workers separately.
		log.Println("starting in api-only mode")
		if err := router.Run(":" + strconv.Itoa(cfg.Port)); err != nil {
			log.Fatalf("server error: %v", err)
		}
	default:
		// Default: run both API server and worker in the same process.
		go w.Start(ctx)

		if err := router.Run(":" + strconv.Itoa(cfg.Port)); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

// campaignResolver adapts the store to the transport's campaign lookup.
// A missing campaign disables overrides rather than failing the build.
type campaignResolver struct {
	queries store.Querier
}

func (r *campaignResolver) Campaign(ctx context.Context, id int64) (*mailjet.Campaign, error) {
	c, err := r.queries.GetCampaign(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mailjet.Campaign{
		FromAddress: c.FromAddress,
		FromName:    c.FromName,
		ReplyTo:     c.ReplyTo,
	}, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/fernandez-a/Tori-monitor/internal/config"
	"github.com/fernandez-a/Tori-monitor/internal/db"
	"github.com/fernandez-a/Tori-monitor/internal/gateway"
	"github.com/fernandez-a/Tori-monitor/internal/model"
	"github.com/fernandez-a/Tori-monitor/internal/monitor"
	"github.com/fernandez-a/Tori-monitor/internal/notify"
	"github.com/fernandez-a/Tori-monitor/internal/reconcile"
	"github.com/fernandez-a/Tori-monitor/internal/scraper"
	"github.com/fernandez-a/Tori-monitor/internal/store"
	"github.com/fernandez-a/Tori-monitor/internal/sweep"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Service: "tori-monitor",
		Version: "1.0.0",
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] Config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[main] Postgres: %v", err)
	}
	defer pool.Close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[main] Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("[main] REDIS_URL not set — cross-process notify guard disabled")
	}

	st := store.NewPostgres(pool)
	fetcher := scraper.NewFetcher(cfg.SearchURL, cfg.FetchWorkers, cfg.FetchRPS)
	notifier := notify.NewWebhook(cfg.WebhookURL, rdb)
	pipeline := monitor.NewPipeline(fetcher, reconcile.New(st), notifier)
	ctrl := monitor.NewController(cfg.PollInterval, pipeline.Run)
	defer ctrl.Stop()

	if cfg.SweepEnabled {
		scope := model.Filter{
			MinPrice: cfg.SweepMinPrice,
			MaxPrice: cfg.SweepMaxPrice,
			Location: cfg.SweepLocation,
		}
		sw := sweep.New(fetcher, st, scope, cfg.SweepInterval)
		if err := sw.Start(ctx); err != nil {
			log.Fatalf("[main] Sweep: %v", err)
		}
		defer sw.Stop()
	}

	if cfg.GatewayURL != "" {
		gw := gateway.New(cfg.GatewayURL, cfg.BotToken, ctrl, notifier)
		go gw.Run(ctx)
	} else {
		log.Println("[main] GATEWAY_URL not set — chat control surface disabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Printf("[main] Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[main] Fatal: %v", err)
	}
}

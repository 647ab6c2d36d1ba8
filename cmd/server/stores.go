package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medtriage/internal/config"
	"medtriage/internal/history"
	"medtriage/internal/pharmacy"
	"medtriage/internal/triage"
	"medtriage/migrations"
)

type stores struct {
	history  triage.HistoryStore
	feedback triage.FeedbackStore
	orders   pharmacy.OrderRepository
	close    func() error
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := connectPostgres(ctx, cfg.Storage.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := migrations.Up(cfg.Storage.DatabaseURL); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("migrations applied")
		pg := history.NewPostgresStore(db)
		return &stores{history: pg, feedback: pg, orders: pharmacy.NewPostgresRepository(db), close: db.Close}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Storage.RedisAddr, err)
		}
		rs := history.NewRedisStore(client, cfg.Storage.RedisPrefix)
		// Orders need relational storage; with redis they stay in memory.
		return &stores{history: rs, feedback: rs, orders: pharmacy.NewMemoryRepository(), close: client.Close}, nil

	default:
		ms := history.NewMemoryStore()
		return &stores{history: ms, feedback: ms, orders: pharmacy.NewMemoryRepository(), close: func() error { return nil }}, nil
	}
}

// connectPostgres retries the first ping while the database container starts.
func connectPostgres(ctx context.Context, url string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	const attempts = 10
	for i := 1; i <= attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			logger.Info("connected to database")
			return db, nil
		}
		logger.Warn("waiting for database", zap.Int("attempt", i), zap.Error(err))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	db.Close()
	return nil, fmt.Errorf("could not connect to database: %w", err)
}

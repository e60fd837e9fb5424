package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/config"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/db"
)

// patientStore is the repository selected by STORE_BACKEND together with
// what the health check and shutdown need.
type patientStore struct {
	backend string
	repo    patient.Repository
	ping    db.PingFunc
	pool    *pgxpool.Pool
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config) (*patientStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg))
		if err != nil {
			return nil, err
		}
		return &patientStore{
			backend: cfg.StoreBackend,
			repo:    patient.NewRepoPG(pool),
			ping:    pool.Ping,
			pool:    pool,
			close:   pool.Close,
		}, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &patientStore{
			backend: cfg.StoreBackend,
			repo:    patient.NewRedisRepo(client, cfg.RedisPrefix),
			ping:    func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close:   func() { client.Close() },
		}, nil

	case config.BackendMemory, "":
		return &patientStore{
			backend: config.BackendMemory,
			repo:    patient.NewMemoryRepo(),
			ping:    func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func poolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		PingTimeout: 5 * time.Second,
	}
}

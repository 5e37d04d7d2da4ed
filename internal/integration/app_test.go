package integration_test

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tixwave/pricing-engine/internal/app"
)

// TestApp wraps the application together with direct database and cache
// handles so tests can seed fixtures and inspect state.
type TestApp struct {
	App   *app.Application
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	application, err := app.New(cfg)
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.New(context.Background(), cfg.DB.DSN)
	if err != nil {
		application.Close()
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})

	return &TestApp{
		App:   application,
		DB:    db,
		Redis: redisClient,
	}, nil
}

func (t *TestApp) Close() {
	t.Redis.Close()
	t.DB.Close()
	t.App.Close()
}

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/tixwave/pricing-engine/internal/domain"
	"github.com/tixwave/pricing-engine/internal/pricing"
	"github.com/tixwave/pricing-engine/internal/repository"
	appvalidator "github.com/tixwave/pricing-engine/internal/validator"
	"github.com/tixwave/pricing-engine/internal/vcs"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate

	couponRepo domain.CouponRepository

	pricer *pricing.Composer

	quoteDuration metric.Int64Histogram
}

type Config struct {
	Port             int
	Env              string
	OtelCollectorUrl string
	MigrationsURL    string
	DB               DBConfig
	Redis            RedisConfig
	Pricing          PricingConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type PricingConfig struct {
	SurgeThreshold      float64
	SeatScopePolicy     string
	CacheTTL            time.Duration
	MembershipDiscounts string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")
	flag.StringVar(&cfg.MigrationsURL, "migrations-url", "", "Migrations source URL (e.g. file://migrations), empty to skip")

	flag.Float64Var(&cfg.Pricing.SurgeThreshold, "pricing-surge-threshold", 0.8,
		"Occupancy ratio at which DEMAND_SURGE rules fire")
	flag.StringVar(&cfg.Pricing.SeatScopePolicy, "pricing-seat-scope", "any",
		"seatCategory coupon scope policy (any|all)")
	flag.DurationVar(&cfg.Pricing.CacheTTL, "pricing-cache-ttl", 30*time.Second,
		"TTL for cached rules and coupons")
	flag.StringVar(&cfg.Pricing.MembershipDiscounts, "membership-discounts", "",
		"Membership discount override, e.g. SILVER=5,GOLD=10,PLATINUM=15")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	app, err := New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		app.logger = slog.New(NewMultiHandler(
			slog.NewTextHandler(os.Stdout, nil),
			otelslog.NewHandler("pricing-api"),
		))
	}

	return app.serve()
}

// New wires the application from an already-populated Config. It is used by
// Run and by the integration test harness.
func New(cfg Config) (*Application, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MigrationsURL != "" {
		if err := runMigrations(cfg.MigrationsURL, cfg.DB.DSN); err != nil {
			db.Close()
			return nil, err
		}
	}

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	membership, err := parseMembershipDiscounts(cfg.Pricing.MembershipDiscounts)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	ruleRepo := repository.NewCachedRuleRepository(
		repository.NewPostgresRuleRepository(db, logger), redisClient, cfg.Pricing.CacheTTL, logger)
	couponRepo := repository.NewCachedCouponRepository(
		repository.NewPostgresCouponRepository(db), redisClient, cfg.Pricing.CacheTTL, logger)
	catalogRepo := repository.NewPostgresCatalogRepository(db)

	pricer := pricing.NewComposer(logger, catalogRepo, ruleRepo, couponRepo, pricing.Options{
		Membership:     membership,
		SeatScope:      pricing.SeatScopePolicy(cfg.Pricing.SeatScopePolicy),
		SurgeThreshold: cfg.Pricing.SurgeThreshold,
	})

	meter := otel.Meter("pricing-api")

	quoteDuration, err := meter.Int64Histogram(
		"pricing.quote.duration",
		metric.WithDescription("Time spent composing a pricing quote"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}

	app := &Application{
		config:        cfg,
		logger:        logger,
		db:            db,
		redis:         redisClient,
		validator:     appvalidator.NewValidator(),
		couponRepo:    couponRepo,
		pricer:        pricer,
		quoteDuration: quoteDuration,
	}

	return app, nil
}

func (app *Application) Close() {
	app.db.Close()
	app.redis.Close()
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func runMigrations(migrationsURL, dsn string) error {
	// golang-migrate selects its driver from the URL scheme, and the pool DSN
	// uses postgres:// while the pgx/v5 driver registers pgx5://.
	databaseURL := strings.Replace(dsn, "postgres://", "pgx5://", 1)

	m, err := migrate.New(migrationsURL, databaseURL)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// parseMembershipDiscounts turns "SILVER=5,GOLD=10" into a membership table,
// leaving unmentioned tiers at their defaults.
func parseMembershipDiscounts(raw string) (pricing.MembershipTable, error) {
	table := pricing.DefaultMembershipTable()

	if raw == "" {
		return table, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		tier, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return nil, fmt.Errorf("malformed membership discount entry: %q", pair)
		}

		percent, err := strconv.ParseInt(value, 10, 64)
		if err != nil || percent < 0 || percent > 100 {
			return nil, fmt.Errorf("membership discount for %s must be an integer between 0 and 100", tier)
		}

		table[domain.MembershipTier(strings.ToUpper(tier))] = decimal.NewFromInt(percent)
	}

	return table, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

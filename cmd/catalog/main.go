package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ItemCatalog/internal/catalog"
	"ItemCatalog/internal/config"
	"ItemCatalog/pkg/kit"
)

const service = "catalog"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("catalog stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx := context.Background()
	closer := &kit.Closer{}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := closer.Close(closeCtx); err != nil {
			log.Warn("resource shutdown", zap.Error(err))
		}
	}()

	store, err := openStore(ctx, cfg, log, closer)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []catalog.Option{
		catalog.WithLogger(log),
		catalog.WithMetrics(catalog.NewServiceMetrics(reg)),
	}
	if cfg.Kafka.Enabled() {
		pub := catalog.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		closer.Add("kafka", func(context.Context) error { return pub.Close() })
		opts = append(opts, catalog.WithEvents(pub))
		log.Info("item events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	s := &catalog.Server{
		Service: catalog.NewService(store, opts...),
		Log:     log,
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		WriteRateLimit: cfg.WriteRateLimit,
		TrustedProxies: cfg.TrustedProxies,
	})

	return kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log, kit.ServerOptions{
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger, closer *kit.Closer) (catalog.Store, error) {
	var store catalog.Store

	switch cfg.Store {
	case config.StorePostgres:
		db, err := catalog.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		configurePool(db)
		closer.Add("postgres", func(context.Context) error { return db.Close() })
		store = catalog.NewPostgresStore(db)
	default:
		store = catalog.NewMemStore()
	}
	log.Info("item store ready", zap.String("backend", cfg.Store))

	if !cfg.Redis.Enabled() {
		return store, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	closer.Add("redis", func(context.Context) error { return rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, cache will degrade to store", zap.Error(err))
	}

	log.Info("item cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	return catalog.NewCachedStore(store, rdb, cfg.Redis.TTL, log), nil
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
}

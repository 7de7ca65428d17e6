package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/configs"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/ledger"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	cfg, err := configs.Load("configs", env)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	log.Info("storefront starting", "env", env, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Error("storage setup failed", "error", err)
		os.Exit(1)
	}
	closers = append(closers, closeRepo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := gateway.NewClient(gateway.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		Breaker: gateway.BreakerConfig{
			MaxRequests:      cfg.Backend.Breaker.MaxRequests,
			Interval:         cfg.Backend.Breaker.Interval,
			OpenTimeout:      cfg.Backend.Breaker.OpenTimeout,
			FailureThreshold: cfg.Backend.Breaker.FailureThreshold,
		},
	}, logger.New("gateway"))

	deps := service.CheckoutDeps{
		Gateway:      client,
		Metrics:      m,
		PaymentDelay: cfg.Checkout.PaymentDelay,
		Logger:       logger.New("checkout"),
	}

	codes, _ := cfg.PromoCodes()
	deps.Promotions = service.NewPromotionEvaluator(codes)

	var pending h.PendingLister
	if cfg.Postgres.Enabled {
		creds := &ledger.Credentials{
			Host:              cfg.Postgres.Host,
			Port:              cfg.Postgres.Port,
			User:              cfg.Postgres.User,
			Password:          cfg.Postgres.Password,
			DBName:            cfg.Postgres.DBName,
			MigrationsDirPath: cfg.Postgres.MigrationsDir,
		}
		l, err := ledger.NewPostgresLedger(ctx, creds)
		if err != nil {
			log.Error("failed to connect to ledger database", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func() { _ = l.Close() })
		if err := l.RunMigrations(creds); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("ledger migrations completed")
		deps.Ledger = l
		pending = l
	}

	if cfg.Kafka.Enabled {
		p := publisher.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		closers = append(closers, func() {
			if err := p.Close(); err != nil {
				log.Error("kafka writer close failed", "error", err)
			}
		})
		deps.Events = p
		log.Info("checkout events enabled", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	fee, _ := cfg.ShippingFee()
	sessions := service.NewSessionRegistry(service.RegistryConfig{
		Repo:        repo,
		Checkout:    deps,
		ShippingFee: fee,
		Confirmer:   h.HeaderConfirmer,
	})

	poller := catalog.NewPoller(client, cfg.Catalog.RefreshInterval, logger.New("catalog"))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	router := h.NewRouter(h.RouterDeps{
		Sessions:       sessions,
		Catalog:        poller,
		Orders:         client,
		Pending:        pending,
		Auth:           h.NewAuthenticator(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.Audience),
		Metrics:        m,
		Gatherer:       reg,
		Logger:         logger.New("http"),
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("storefront listening", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	wg.Wait()

	log.Info("server exited")
}

func openRepository(ctx context.Context, cfg configs.Config, log *slog.Logger) (repository.CartRepository, func(), error) {
	switch cfg.Storage.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.Info("redis ping succeeded", "addr", cfg.Redis.Addr)
		return repository.NewRedisRepository(client, cfg.Storage.CartTTL), func() { _ = client.Close() }, nil

	case "mongo":
		db, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
			URI:              cfg.Mongo.URI,
			Database:         cfg.Mongo.Database,
			ConnectTimeout:   cfg.Mongo.ConnectTimeout,
			SelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
			MaxPoolSize:      cfg.Mongo.MaxPoolSize,
			MinPoolSize:      cfg.Mongo.MinPoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx, cfg.Storage.CartTTL); err != nil {
			return nil, nil, err
		}
		log.Info("connected to mongodb", "database", cfg.Mongo.Database)
		return repo, func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(dctx)
		}, nil

	default:
		log.Warn("using in-memory cart storage, carts are lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"commerce/internal/config"
	"commerce/internal/events"
	httpapi "commerce/internal/http"
	"commerce/internal/payment"
	"commerce/internal/repository"
	"commerce/internal/service"
)

// repos хранилища одного бэкенда
type repos struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	courses  repository.CourseRepository
	quizzes  repository.QuizRepository
	certs    repository.CertificateRepository
	tx       repository.TxManager
}

type app struct {
	server  *httpapi.Server
	closers []func() error
	log     *slog.Logger
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{log: log}
	var checks []func(ctx context.Context) error

	var r repos
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := repository.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		checks = append(checks, pool.Ping)
		pg := repository.NewPostgres(pool)
		applied, err := pg.Migrate(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		if len(applied) > 0 {
			log.Info("migrations applied", "versions", applied)
		}
		r = postgresRepos(pg)
	default:
		r = memoryRepos()
	}

	// кэш каталога; live остаётся для read-modify-write
	catalog := r.products
	if cfg.RedisAddr != "" {
		rdb, err := repository.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		checks = append(checks, func(ctx context.Context) error { return pingRedis(ctx, rdb) })
		catalog = repository.NewCachedProducts(r.products, rdb, cfg.ProductCacheTTL, log)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers)
	a.closers = append(a.closers, publisher.Close)

	deps := service.Deps{Log: log, Events: publisher, StoreTimeout: cfg.StoreTimeout}
	svc := httpapi.Services{
		Products: service.NewProductService(catalog, r.products, r.tx, deps),
		Carts:    service.NewCartService(r.products, r.carts, r.tx, deps),
		Orders:   service.NewOrderService(catalog, r.carts, r.orders, r.tx, deps),
		Payments: service.NewPaymentService(r.orders, r.courses, r.payments, r.tx, provider,
			service.PaymentConfig{Currency: cfg.Currency, ProviderTimeout: cfg.ProviderTimeout}, deps),
		Courses: service.NewCourseService(r.courses, r.tx, deps),
		Quizzes: service.NewQuizService(r.quizzes, r.courses, r.certs, r.tx, deps),
	}
	a.server = httpapi.NewServer(svc, httpapi.Options{
		Log: log,
		Health: func(ctx context.Context) error {
			var errs []error
			for _, check := range checks {
				errs = append(errs, check(ctx))
			}
			return errors.Join(errs...)
		},
	})
	return a, nil
}

func memoryRepos() repos {
	store := repository.NewMemoryStore()
	return repos{
		products: store,
		carts:    repository.NewMemoryCarts(store),
		orders:   repository.NewMemoryOrders(store),
		payments: repository.NewMemoryPayments(store),
		courses:  repository.NewMemoryCourses(store),
		quizzes:  repository.NewMemoryQuizzes(store),
		certs:    repository.NewMemoryCertificates(store),
		tx:       repository.NewMemoryTx(store),
	}
}

func postgresRepos(pg *repository.Postgres) repos {
	return repos{
		products: repository.PostgresProducts{Postgres: pg},
		carts:    repository.PostgresCarts{Postgres: pg},
		orders:   repository.PostgresOrders{Postgres: pg},
		payments: repository.PostgresPayments{Postgres: pg},
		courses:  repository.PostgresCourses{Postgres: pg},
		quizzes:  repository.PostgresQuizzes{Postgres: pg},
		certs:    repository.PostgresCertificates{Postgres: pg},
		tx:       pg,
	}
}

func newProvider(cfg *config.Config) (payment.Provider, error) {
	switch cfg.PaymentProvider {
	case config.ProviderStripe:
		return payment.NewStripe(cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.ProviderTimeout), nil
	case config.ProviderFake:
		// без провайдера намерения подтверждаются сразу
		return payment.NewFake(true), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}

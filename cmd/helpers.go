package main

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/commonground-app/commonground/internal/census"
	"github.com/commonground-app/commonground/internal/fetcher"
	"github.com/commonground-app/commonground/internal/store"
)

// censusStore opens the census data store for the configured driver.
// The returned cleanup closes the store and, for postgres, the pool.
func censusStore(ctx context.Context) (census.Store, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := census.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		pool, err := newPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		return census.NewPostgres(pool), pool.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// platformStore opens the problems/ratings store for the configured driver.
func platformStore(ctx context.Context) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		pool, err := newPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(pool), pool.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ping database")
	}
	return pool, nil
}

// newHTTPFetcher builds the rate-limited HTTP client from config.
func newHTTPFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.Fetch.Retries,
		UserAgent:    cfg.Fetch.UserAgent,
		RateLimiters: map[string]*rate.Limiter{"www2.census.gov": rate.NewLimiter(rate.Limit(cfg.Fetch.RequestsPerSec), 1)},
	})
}

// splitAndTrim splits a comma-separated flag value, dropping empties.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// toUpper uppercases all strings in a slice.
func toUpper(ss []string) []string {
	for i, s := range ss {
		ss[i] = strings.ToUpper(s)
	}
	return ss
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cordum/depositor/core/checksum"
	"github.com/cordum/depositor/core/hierarchy"
	"github.com/cordum/depositor/core/infra/artifacts"
	"github.com/cordum/depositor/core/infra/buildinfo"
	"github.com/cordum/depositor/core/infra/bus"
	"github.com/cordum/depositor/core/infra/config"
	"github.com/cordum/depositor/core/infra/locks"
	"github.com/cordum/depositor/core/infra/logging"
	"github.com/cordum/depositor/core/infra/metrics"
	"github.com/cordum/depositor/core/infra/redisutil"
	"github.com/cordum/depositor/core/pipeline"
	"github.com/cordum/depositor/core/preservation"
	"github.com/cordum/depositor/core/repository"
)

const shutdownTimeout = 5 * time.Second

// environment owns the collaborators a command runs against.
type environment struct {
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func newEnvironment(cfg *config.Config) (*environment, error) {
	env := &environment{}
	alg, err := checksum.ParseAlgorithm(cfg.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}
	parentLookup, err := hierarchy.ParseBy(cfg.ParentLookup)
	if err != nil {
		return nil, err
	}
	repoOpts := repository.Options{Namespace: cfg.PIDNamespace, Algorithm: alg}

	var (
		repo   repository.Repository
		events preservation.Store
		lock   locks.Store
	)
	if cfg.UsesRedis() {
		client, err := redisutil.Connect(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, client.Close)
		repo, events, lock = redisCollaborators(client, repoOpts)
	} else {
		repo = repository.NewMemoryRepository(repoOpts)
		events = preservation.NewMemoryStore()
		lock = locks.NewMemoryStore()
	}

	var publisher preservation.Publisher
	if cfg.NatsURL != "" {
		nb, err := bus.NewNatsBus(cfg.NatsURL)
		if err != nil {
			_ = env.Close()
			return nil, err
		}
		env.closers = append(env.closers, func() error { nb.Close(); return nil })
		logging.Info("depositor", "preservation events fan out to nats", "url", cfg.NatsURL, "status", nb.Status(), "subject", cfg.EventSubject)
		publisher = nb
	}

	var m metrics.Metrics = metrics.Noop{}
	if cfg.MetricsAddr != "" {
		m = metrics.NewProm(buildinfo.Name)
		stop, err := serveMetrics(cfg.MetricsAddr)
		if err != nil {
			_ = env.Close()
			return nil, err
		}
		env.closers = append(env.closers, stop)
	}

	p, err := pipeline.New(pipeline.Options{
		Repository:   repo,
		Events:       preservation.NewRecorder(events, publisher, cfg.EventSubject),
		Locks:        lock,
		LockTTL:      cfg.LockTTL,
		Metrics:      m,
		Workers:      cfg.ValidateWorkers,
		Algorithm:    alg,
		ParentLookup: parentLookup,
	})
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	env.pipeline = p
	return env, nil
}

func redisCollaborators(client redis.UniversalClient, opts repository.Options) (repository.Repository, preservation.Store, locks.Store) {
	repo := repository.NewRedisRepository(client, artifacts.NewRedisStoreWithClient(client), opts)
	return repo, preservation.NewRedisStoreWithClient(client), locks.NewRedisStoreWithClient(client)
}

// Close releases collaborators in reverse order of creation.
func (e *environment) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

func serveMetrics(addr string) (func() error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(buildinfo.Name, "metrics server stopped", "error", err)
		}
	}()
	logging.Info(buildinfo.Name, "metrics listening", "addr", ln.Addr().String())
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

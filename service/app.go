package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postwall/app/config"
	"postwall/app/metrics"
	"postwall/app/middleware"
	"postwall/app/queue"
	"postwall/app/repositories"
	"postwall/app/routes"
	"postwall/app/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// App holds the wired server and everything that must be closed with it.
type App struct {
	Handler http.Handler
	closers []func(context.Context) error
	log     *zap.Logger
}

type stores struct {
	posts  repositories.PostStore
	users  repositories.UserRepository
	health repositories.Pinger
	close  func(context.Context) error
}

// NewApp opens the configured stores and transports and builds the router.
func NewApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{log: log}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, st.close)
	log.Info("store opened", zap.String("driver", cfg.StoreDriver))

	events := queue.NewNoop()
	if cfg.RabbitURL != "" {
		pub, err := queue.NewRabbit(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			app.Close(ctx)
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		events = pub
		log.Info("publishing post events", zap.String("exchange", cfg.EventsExchange))
	}
	app.closers = append(app.closers, func(context.Context) error { return events.Close() })

	var limiter middleware.Limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
	if cfg.RedisURL != "" {
		rdb, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			app.Close(ctx)
			return nil, fmt.Errorf("redis: %w", err)
		}
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMin, time.Minute)
		app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })
		log.Info("rate limiting through redis")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)

	app.Handler = routes.NewRouter(routes.Deps{
		Posts: services.NewPostService(st.posts, services.Options{
			Lifetime:     cfg.PostLifetime,
			StoreTimeout: cfg.StoreTimeout,
			Events:       events,
			Logger:       log,
		}),
		Auth: services.NewAuthService(st.users, services.AuthOptions{
			Secret:   cfg.TokenSecret,
			TokenTTL: cfg.TokenTTL,
			Logger:   log,
		}),
		Limiter: limiter,
		Health:  st.health,
		Metrics: reg,
		Clock:   time.Now,
		Logger:  log,
	})
	return app, nil
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverBadger, config.DriverMemory:
		path := cfg.DBPath
		if cfg.StoreDriver == config.DriverMemory {
			path = ""
		}
		repo, err := repositories.NewRepository(path, cfg.StoreAttempts)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return &stores{
			posts:  repo.Posts(),
			users:  repo.Users(),
			health: repo,
			close:  func(context.Context) error { return repo.Close() },
		}, nil
	case config.DriverMongo:
		ms, err := repositories.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.StoreAttempts)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		if err := ms.EnsureIndexes(ctx); err != nil {
			ms.Close(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return &stores{posts: ms.Posts(), users: ms.Users(), health: ms, close: ms.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RunAppServer serves the API until SIGINT or SIGTERM.
func RunAppServer(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return Serve(ctx, srv, log, cfg.ShutdownTimeout)
}

// Serve runs srv until ctx is done, then drains in-flight requests for up
// to timeout.
func Serve(ctx context.Context, srv *http.Server, log *zap.Logger, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("server stopped")
	return nil
}

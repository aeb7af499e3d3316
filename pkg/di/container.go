package di

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/adminapi"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/endpoint"
	"github.com/goliatone/go-query-cache/executor"
	"github.com/goliatone/go-query-cache/session"
)

// Container wires the dashboard client together: config, logger, session,
// executor, registry, cache store and the typed admin API client. Every
// component is a singleton owned by the container.
type Container struct {
	config        config.Config
	logger        *zap.Logger
	session       *session.State
	executor      *executor.Executor
	registry      *endpoint.Registry
	keySerializer cache.KeySerializer
	store         *cache.Store
	client        *adminapi.Client
}

// Option overrides a component the container would otherwise build from
// the configuration.
type Option func(*options)

type options struct {
	logger        *zap.Logger
	sessionStore  session.Store
	httpClient    *http.Client
	retention     cache.RetentionStore
	keySerializer cache.KeySerializer
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSessionStore replaces the store opened from Config.SessionDSN.
func WithSessionStore(s session.Store) Option {
	return func(o *options) { o.sessionStore = s }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRetention replaces the sturdyc retention built from Config.Cache.
func WithRetention(r cache.RetentionStore) Option {
	return func(o *options) { o.retention = r }
}

func WithKeySerializer(ks cache.KeySerializer) Option {
	return func(o *options) { o.keySerializer = ks }
}

// NewContainer validates cfg and builds every component. On error anything
// already opened is closed again.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{config: cfg, logger: o.logger}
	var ownedRetention cache.RetentionStore
	var err error
	defer func() {
		if err == nil {
			return
		}
		if c.store == nil && ownedRetention != nil {
			_ = ownedRetention.Close()
		}
		_ = c.Close()
	}()

	if c.logger == nil {
		if c.logger, err = config.NewLogger(cfg.Environment, cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	sessionStore := o.sessionStore
	if sessionStore == nil {
		if sessionStore, err = session.OpenBunStore(ctx, cfg.SessionDSN); err != nil {
			return nil, err
		}
	}
	if c.session, err = session.Open(ctx, sessionStore, session.WithLogger(c.logger.Named("session"))); err != nil {
		_ = sessionStore.Close()
		return nil, err
	}

	execOpts := []executor.Option{
		executor.WithTokenSource(c.session),
		executor.WithLogger(c.logger.Named("executor")),
	}
	if o.httpClient != nil {
		execOpts = append(execOpts, executor.WithHTTPClient(o.httpClient))
	}
	c.executor = executor.New(cfg.APIBaseURL, execOpts...)

	if c.registry, err = adminapi.NewRegistry(); err != nil {
		return nil, err
	}

	retention := o.retention
	if retention == nil {
		if ownedRetention, err = cache.NewRetention(cfg.Cache); err != nil {
			return nil, err
		}
		retention = ownedRetention
	}

	c.keySerializer = o.keySerializer
	if c.keySerializer == nil {
		c.keySerializer = cache.NewDefaultKeySerializer()
	}

	c.store = cache.NewStore(c.registry, c.executor,
		cache.WithRetention(retention),
		cache.WithKeySerializer(c.keySerializer),
		cache.WithLogger(c.logger.Named("cache")),
	)
	c.client = adminapi.NewClient(c.store, c.session, adminapi.WithLogger(c.logger.Named("adminapi")))

	c.logger.Debug("container ready",
		zap.String("env", cfg.Environment),
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("grace_window", cfg.Cache.GraceWindow),
	)
	return c, nil
}

// NewContainerFromEnv loads the configuration from the environment and
// builds a container from it.
func NewContainerFromEnv(ctx context.Context, opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, *cfg, opts...)
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config { return c.config }

func (c *Container) Logger() *zap.Logger { return c.logger }

func (c *Container) Session() *session.State { return c.session }

func (c *Container) Executor() *executor.Executor { return c.executor }

func (c *Container) Registry() *endpoint.Registry { return c.registry }

func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

func (c *Container) Store() *cache.Store { return c.store }

// Client returns the typed admin API client.
func (c *Container) Client() *adminapi.Client { return c.client }

// Close shuts the cache down before the session store it reads tokens
// from.
func (c *Container) Close() error {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	if c.session != nil {
		errs = append(errs, c.session.Close())
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errors.Join(errs...)
}

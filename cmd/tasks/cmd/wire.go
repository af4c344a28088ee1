package cmd

import (
	"context"
	"fmt"
	"io"
	stdslog "log/slog"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/querycache"
	"github.com/unkn0wn-root/querycache/codec"
	"github.com/unkn0wn-root/querycache/genstore"
	asynchook "github.com/unkn0wn-root/querycache/hooks/async"
	"github.com/unkn0wn-root/querycache/internal/config"
	qclogrus "github.com/unkn0wn-root/querycache/log/logrus"
	qcslog "github.com/unkn0wn-root/querycache/log/slog"
	qczap "github.com/unkn0wn-root/querycache/log/zap"
	qczerolog "github.com/unkn0wn-root/querycache/log/zerolog"
	"github.com/unkn0wn-root/querycache/provider"
	"github.com/unkn0wn-root/querycache/provider/bigcache"
	"github.com/unkn0wn-root/querycache/provider/redis"
	"github.com/unkn0wn-root/querycache/provider/ristretto"
	"github.com/unkn0wn-root/querycache/sloghooks"
	"github.com/unkn0wn-root/querycache/taskapi"
	"github.com/unkn0wn-root/querycache/tasks"
)

// app is everything one command invocation needs.
type app struct {
	cfg     *config.Config
	log     querycache.Logger
	api     *taskapi.Client
	store   *querycache.Store
	client  *querycache.Client
	queries *tasks.Queries
	mutator *tasks.Mutator

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, stderr io.Writer) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close(ctx)
		}
	}()

	a.log, err = a.newLogger(stderr)
	if err != nil {
		return nil, err
	}

	a.api, err = taskapi.New(taskapi.Config{
		BaseURL:    cfg.API.URL,
		Token:      cfg.API.Token,
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		RetryDelay: cfg.API.RetryDelay,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = a.api.Close() })

	hooks := asynchook.New(sloghooks.New(a.slogger(stderr), sloghooks.Options{FetchEvery: 1}), 1, 256)
	a.closers = append(a.closers, hooks.Close)

	opts := querycache.StoreOptions{
		Namespace:     cfg.Cache.Namespace,
		Logger:        a.log,
		Hooks:         hooks,
		StaleTime:     cfg.Cache.StaleTime,
		Retention:     cfg.Cache.Retention,
		SweepInterval: cfg.Cache.SweepInterval,
	}
	if err := a.wireProvider(ctx, &opts); err != nil {
		return nil, err
	}
	a.store, err = querycache.NewStore(opts)
	if err != nil {
		_ = opts.Provider.Close(ctx)
		return nil, err
	}

	listCodec, err := codec.ByName[tasks.Page](cfg.Cache.Codec, cfg.Cache.MaxDecodeBytes)
	if err != nil {
		return nil, err
	}
	taskCodec, err := codec.ByName[tasks.Task](cfg.Cache.Codec, cfg.Cache.MaxDecodeBytes)
	if err != nil {
		return nil, err
	}

	a.client = querycache.NewClient(a.store, querycache.ClientOptions{FetchTimeout: cfg.Cache.FetchTimeout})
	a.queries = tasks.NewQueries(a.api, listCodec, taskCodec)
	a.mutator = tasks.NewMutator(a.api, a.client, a.log)
	return a, nil
}

// wireProvider fills in the value provider and, for redis, a generation
// store sharing the same client.
func (a *app) wireProvider(ctx context.Context, opts *querycache.StoreOptions) error {
	c := a.cfg.Cache
	var (
		p   provider.Provider
		err error
	)
	switch c.Provider {
	case "bigcache":
		p, err = bigcache.New(ctx, bigcache.Config{
			LifeWindow:         max(c.Retention*2, time.Hour),
			HardMaxCacheSizeMB: c.MaxSizeMB,
		})
	case "ristretto":
		p, err = ristretto.New(ristretto.Config{
			NumCounters: max(c.MaxCost/100, 1000),
			MaxCost:     c.MaxCost,
			BufferItems: 64,
		})
		opts.ComputeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	case "redis":
		r := a.cfg.Redis
		rdb, derr := redis.Dial(ctx, r.Addr, r.Password, r.DB)
		if derr != nil {
			return fmt.Errorf("connect redis %s: %w", r.Addr, derr)
		}
		p, err = redis.New(redis.Config{Client: rdb})
		if err != nil {
			_ = rdb.Close()
			return err
		}
		opts.GenStore = genstore.NewRedisGenStore(rdb, c.Namespace).OwnClient()
		opts.ValueTTL = max(c.Retention*2, time.Hour)
	default:
		return fmt.Errorf("unknown cache provider %q", c.Provider)
	}
	if err != nil {
		return fmt.Errorf("%s provider: %w", c.Provider, err)
	}
	opts.Provider = p
	return nil
}

func (a *app) newLogger(w io.Writer) (querycache.Logger, error) {
	level := a.cfg.Log.Level
	switch a.cfg.Log.Backend {
	case "zap":
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		l := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
		a.closers = append(a.closers, func() { _ = l.Sync() })
		return qczap.New(l), nil
	case "logrus":
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		return qclogrus.New(l), nil
	case "slog":
		return qcslog.Logger{L: a.slogger(w)}, nil
	case "zerolog":
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		return qczerolog.Logger{L: zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "querycache").Logger()}, nil
	}
	return nil, fmt.Errorf("unknown log backend %q", a.cfg.Log.Backend)
}

// slogger backs the hook logger whatever the main backend is.
func (a *app) slogger(w io.Writer) *stdslog.Logger {
	var lvl stdslog.Level
	if err := lvl.UnmarshalText([]byte(a.cfg.Log.Level)); err != nil {
		lvl = stdslog.LevelWarn
	}
	return stdslog.New(stdslog.NewTextHandler(w, &stdslog.HandlerOptions{Level: lvl}))
}

func (a *app) close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil && a.log != nil {
			a.log.Warn("store close failed", querycache.Fields{"err": err})
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"showmatch/internal/commentary"
	"showmatch/internal/config"
	"showmatch/internal/match"
	"showmatch/internal/obslog"
	"showmatch/internal/render"
	"showmatch/internal/service/show"
	"showmatch/internal/store"
	"showmatch/internal/uci"
	"showmatch/internal/web"
)

// App is the assembled application: the HTTP server plus the resources it
// owns and must close on shutdown.
type App struct {
	Config  *config.AppConfig
	Logger  *zap.Logger
	Service *show.Service
	Server  *web.Server

	pool *uci.Pool
	rdb  *redis.Client
}

func Build(cfg *config.AppConfig) (*App, error) {
	logger := obslog.L()

	st, rdb, err := buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	var engines show.EngineSource
	var pool *uci.Pool
	if cfg.StockfishPath != "" {
		pool, err = uci.NewPool(uci.PoolConfig{
			BinaryPath: cfg.StockfishPath,
			Options: uci.Options{
				Threads:        cfg.EngineThreads,
				HashMB:         cfg.EngineHashMB,
				MoveTimeMillis: cfg.EngineMoveTimeMillis,
			},
			Capacity: cfg.EnginePoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("build engine pool: %w", err)
		}
		engines = &poolSource{pool: pool}
		logger.Info("engine pool ready",
			zap.String("binary", cfg.StockfishPath),
			zap.Int("capacity", cfg.EnginePoolSize))
	} else {
		logger.Info("no engine binary configured, engine variant disabled")
	}

	script, err := match.ImmortalScript()
	if err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}

	var commentator show.CommentaryGenerator
	if cfg.CommentaryEnabled {
		client, err := commentary.NewClient(commentary.ClientConfig{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     time.Duration(cfg.LLMTimeoutMillis) * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("build commentary client: %w", err)
		}
		commentator, err = commentary.NewGenerator(client, cfg.Character)
		if err != nil {
			return nil, fmt.Errorf("build commentary generator: %w", err)
		}
		logger.Info("commentary enabled",
			zap.String("model", cfg.LLMModel),
			zap.String("character", cfg.Character))
	}

	svc := show.NewService(logger, st, render.NewPNGBoardRenderer(), engines, script, commentator, show.Config{
		Character: cfg.Character,
	})

	return &App{
		Config:  cfg,
		Logger:  logger,
		Service: svc,
		Server:  web.NewServer(svc, logger),
		pool:    pool,
		rdb:     rdb,
	}, nil
}

func (a *App) Close() {
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.Logger.Warn("engine pool close", zap.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.Logger.Warn("redis close", zap.Error(err))
		}
	}
}

func buildStore(cfg *config.AppConfig, logger *zap.Logger) (store.Store, *redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info("no redis configured, using in-memory session store")
		return store.NewMemoryStore(), nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := time.Duration(cfg.SessionTTLSec) * time.Second
	logger.Info("redis session store ready", zap.Duration("ttl", ttl))
	return store.NewRedisStore(rdb, ttl), rdb, nil
}

// poolSource adapts the engine pool to the service's searcher interface.
// Every acquisition starts a fresh engine game.
type poolSource struct {
	pool *uci.Pool
}

func (p *poolSource) Acquire(ctx context.Context) (match.Searcher, error) {
	session, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := session.NewGame(ctx); err != nil {
		p.pool.Release(session, err)
		return nil, err
	}
	return session, nil
}

func (p *poolSource) Release(s match.Searcher, err error) {
	if session, ok := s.(*uci.Session); ok {
		p.pool.Release(session, err)
	}
}

package app

import (
	"context"

	"github.com/maikschneider/oauth2/internal/config"
	"github.com/maikschneider/oauth2/internal/db"
	"github.com/maikschneider/oauth2/internal/logger"
	"github.com/maikschneider/oauth2/internal/redis"
	"github.com/maikschneider/oauth2/internal/session"
)

type infra struct {
	db       *db.DB
	sessions session.Store
}

func setupInfra(ctx context.Context, cfg config.Config) (*infra, error) {
	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := db.RunUsersMigration(ctx, database); err != nil {
		database.Close()
		return nil, err
	}

	logger.Info("database ready", nil)

	// Without Redis, sessions live in process memory; fine for a
	// single node, not for replicas.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			database.Close()
			return nil, err
		}
		sessions = session.NewRedisStore(redisClient.Client)
		logger.Info("redis ready", nil)
	} else {
		sessions = session.NewMemoryStore()
		logger.Warn("redis not configured, using in-memory sessions", nil)
	}

	return &infra{
		db:       database,
		sessions: sessions,
	}, nil
}

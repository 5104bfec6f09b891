package main

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/songstudio/studio-api/internal/config"
	"github.com/songstudio/studio-api/internal/domain/account"
	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/membership"
	"github.com/songstudio/studio-api/internal/pkg/database"
	"github.com/songstudio/studio-api/internal/pkg/logger"
)

// backend is what the commands operate on.
type backend struct {
	db       *sqlx.DB // nil for non-SQL backends
	credits  *credit.Service
	accounts *account.Service
	close    func()
}

type openFunc func(cfg *config.Config) (*backend, error)

type commandContext struct {
	open openFunc

	configOnce sync.Once
	config     *config.Config

	backendOnce sync.Once
	backend     *backend
	backendErr  error
}

func newCommandContext(open openFunc) *commandContext {
	return &commandContext{open: open}
}

func (c *commandContext) ensureConfig() *config.Config {
	c.configOnce.Do(func() {
		if c.config == nil {
			c.config = config.Load()
		}
		logger.Init(logger.Config{Level: c.config.LogLevel, Environment: c.config.Env})
	})
	return c.config
}

func (c *commandContext) ensureBackend() (*backend, error) {
	c.backendOnce.Do(func() {
		c.backend, c.backendErr = c.open(c.ensureConfig())
	})
	return c.backend, c.backendErr
}

func (c *commandContext) closeBackend() {
	if c.backend != nil && c.backend.close != nil {
		c.backend.close()
	}
}

func openPostgres(cfg *config.Config) (*backend, error) {
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		database.ClosePostgres(db)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return newBackend(db, rdb, cfg, credit.NewPostgresStore(db), account.NewPostgresStore(db)), nil
}

func newBackend(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, credits credit.Store, accounts account.Store) *backend {
	creditService := credit.NewService(credits, membership.New(cfg.SkoolMemberEmails, rdb))
	return &backend{
		db:       db,
		credits:  creditService,
		accounts: account.NewService(accounts, creditService),
		close: func() {
			database.CloseRedis(rdb)
			if db != nil {
				database.ClosePostgres(db)
			}
		},
	}
}

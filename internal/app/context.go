package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/async"
	"github.com/heartlink/discovery/internal/cache"
	"github.com/heartlink/discovery/internal/geo"
	"github.com/heartlink/discovery/internal/session"
)

// AppContext holds shared dependencies (DB, Redis, Logger, worker pool,
// session registry, geocoder). Capabilities are injected here once and passed
// explicitly; no package-level singletons in the services.
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Pool       *async.Pool
	Sessions   session.Registry
	Geocoder   geo.Geocoder
}

// New creates a new AppContext.
func New(
	db *gorm.DB,
	rdb *cache.RedisCache,
	logger *slog.Logger,
	pool *async.Pool,
	sessions session.Registry,
	geocoder geo.Geocoder,
) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Pool:       pool,
		Sessions:   sessions,
		Geocoder:   geocoder,
	}
}

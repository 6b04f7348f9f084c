// Package server owns the HTTP surface: router assembly, middleware chain,
// response envelope and the WebSocket upgrade endpoint. Route handlers live
// next to their services and plug in through Registrar.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/config"
	"github.com/heartlink/discovery/internal/session"
)

// Registrar is implemented by each service package to mount its routes on the
// authenticated API group.
type Registrar interface {
	Register(rg *gin.RouterGroup)
}

type Server struct {
	appCtx *app.AppContext
	cfg    *config.Config
	engine *gin.Engine
	http   *http.Server
}

func New(appCtx *app.AppContext, cfg *config.Config, hub *session.Hub, registrars ...Registrar) *Server {
	if cfg.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(appCtx.Logger))

	engine.GET("/healthz", func(c *gin.Context) {
		if err := appCtx.RedisCache.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Error: "cache unreachable"})
			return
		}
		OK(c, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1", Identity(), RateLimit(cfg.Rate.ActionsPerSecond, cfg.Rate.Burst))
	for _, r := range registrars {
		r.Register(api)
	}

	engine.GET("/ws", Identity(), WSHandler(hub, appCtx.Logger))

	return &Server{
		appCtx: appCtx,
		cfg:    cfg,
		engine: engine,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.appCtx.Logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

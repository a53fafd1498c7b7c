// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"time"

	"duka-admin/internal/backend"
	"duka-admin/internal/config"
	authHandler "duka-admin/internal/handlers/auth"
	pagesHandler "duka-admin/internal/handlers/pages"
	proxyHandler "duka-admin/internal/handlers/proxy"
	"duka-admin/internal/middleware"
	"duka-admin/internal/session"
	"duka-admin/internal/store"
	"duka-admin/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const registrySweepInterval = 10 * time.Minute

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start(ctx context.Context) error {
	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- Session slot storage -----
	slots, err := s.buildSlotStore()
	if err != nil {
		return err
	}

	// ----- Backend access layer -----
	api := backend.NewClient(s.cfg.APIBaseURL, logger)

	// ----- Session hub & registry -----
	hub := ws.NewHub(logger)
	registry := session.NewRegistry(api, slots, hub, logger, s.cfg.SessionCookie, s.cfg.SessionTTL)
	go registry.Run(ctx, registrySweepInterval)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:  authHandler.NewAuthHandler(api, logger),
		PageHandler:  pagesHandler.NewPageHandler(),
		ProxyHandler: proxyHandler.NewProxyHandler(api, logger),
		Hub:          hub,
	}

	// ----- Middlewares -----
	s.engine.SetHTMLTemplate(pagesHandler.Templates())
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.SessionMiddleware(registry),
	)

	// ----- Router -----
	SetupRouter(s.engine, handlers)

	// ----- Start HTTP -----
	logger.Info("console gateway running",
		zap.String("addr", s.cfg.HTTPAddr),
		zap.String("backend", s.cfg.APIBaseURL),
	)
	return s.engine.Run(s.cfg.HTTPAddr)
}

func (s *Server) buildSlotStore() (store.Store, error) {
	if s.cfg.SessionBackend == "memory" {
		s.logger.Warn("using in-memory session storage, sessions will not survive a restart")
		return store.NewMemoryStore(s.cfg.SessionTTL), nil
	}

	client, err := store.NewRedisClient(store.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))
	return store.NewRedisStore(client, s.cfg.SessionTTL), nil
}

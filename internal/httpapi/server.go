package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/velocity-9/v9-router/internal/config"
	"github.com/velocity-9/v9-router/internal/forward"
	"github.com/velocity-9/v9-router/internal/platform/logger"
)

func NewServer(cfg *config.Config, log *logger.Logger, fw *forward.Forwarder) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewHandler(cfg, log, fw),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		WriteTimeout:      0,
	}
}

func NewHandler(cfg *config.Config, log *logger.Logger, fw *forward.Forwarder) http.Handler {
	switch strings.ToLower(strings.TrimSpace(cfg.Env)) {
	case "dev", "development":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(accessLogMiddleware(log))
	r.Use(recoverMiddleware(log))

	r.GET("/healthz", handleHealthz)
	r.GET("/readyz", handleReadyz)

	h := &componentHandler{
		fw:              fw,
		log:             log,
		maxRequestBytes: cfg.HTTP.MaxRequestBytes,
	}
	r.Any("/:prefix/:user/:repo/:method", h.forward)
	r.NoRoute(h.notRouted)

	return r
}

package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/innerview/realtime-server/internal/auth"
	"github.com/innerview/realtime-server/internal/config"
	"github.com/innerview/realtime-server/internal/core"
	"github.com/innerview/realtime-server/internal/observability"
	"github.com/innerview/realtime-server/internal/store"
)

// NewServer builds the HTTP server: REST API, metrics and the realtime
// websocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	apiHandlers := NewAPIHandlers(authService, logger)
	convHandlers := NewConversationHandlers(st, cfg, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authed := api.Group("")
	authed.Use(AuthMiddleware(authService, logger))
	authed.POST("/conversations", convHandlers.CreateConversation)
	authed.GET("/conversations", convHandlers.ListConversations)
	authed.GET("/conversations/:id/messages", convHandlers.ListMessages)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}

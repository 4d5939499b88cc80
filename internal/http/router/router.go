package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chats-be/internal/auth"
	"chats-be/internal/http/handlers"
	"chats-be/internal/http/middleware"
	"chats-be/internal/metrics"
	"chats-be/internal/pagination"
	"chats-be/internal/permissions"
	"chats-be/internal/ratelimit"
	"chats-be/internal/reqlog"
	"chats-be/internal/store"
)

type Deps struct {
	DB          *gorm.DB
	Tokens      *auth.Tokens
	Log         *zap.Logger
	RequestLog  reqlog.Sink
	Limiter     ratelimit.Limiter // nil disables throttling
	Metrics     *metrics.Metrics  // nil disables /metrics
	CORSOrigins []string
}

func New(d Deps) *gin.Engine {
	st := store.New(d.DB)
	if d.RequestLog == nil {
		d.RequestLog = reqlog.Nop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLog(d.RequestLog), middleware.AccessLog(d.Log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.Use(corsMiddleware(d.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter, d.Log))
	}
	api.Use(middleware.Authenticate(d.Tokens, st, d.Log))

	authH := &handlers.AuthHandler{DB: d.DB, Store: st, Tokens: d.Tokens, Log: d.Log}
	api.POST("/auth/register/", authH.Register)
	api.POST("/token/", authH.Token)
	api.POST("/token/refresh/", authH.Refresh)

	perm := permissions.All(permissions.IsAuthenticated{}, permissions.IsParticipantOfConversation{Checker: st})
	authed := api.Group("")
	authed.Use(middleware.Authorize(perm))

	convH := &handlers.ConversationHandler{DB: d.DB, Store: st, Perm: perm, Paginator: pagination.Standard, Log: d.Log}
	authed.GET("/conversations/", convH.List)
	authed.POST("/conversations/", convH.Create)
	authed.GET("/conversations/:id/", convH.Retrieve)
	authed.PUT("/conversations/:id/", convH.Update)
	authed.PATCH("/conversations/:id/", convH.Update)
	authed.DELETE("/conversations/:id/", convH.Destroy)
	authed.POST("/conversations/:id/add_participant/", convH.AddParticipant)
	authed.GET("/conversations/:id/messages/", convH.Messages)

	msgH := &handlers.MessageHandler{DB: d.DB, Store: st, Perm: perm, Paginator: pagination.Standard, Log: d.Log}
	authed.GET("/messages/", msgH.List)
	authed.POST("/messages/", msgH.Create)
	authed.GET("/messages/conversation_messages/", msgH.ConversationMessages)
	authed.GET("/messages/:id/", msgH.Retrieve)
	authed.PUT("/messages/:id/", msgH.Update)
	authed.PATCH("/messages/:id/", msgH.Update)
	authed.DELETE("/messages/:id/", msgH.Destroy)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Location", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

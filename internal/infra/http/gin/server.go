package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"talenthub/internal/infra/config"
	"talenthub/internal/infra/obs"
)

type AttachmentHTTP interface {
	Upload(c *gin.Context)
}

type Handlers struct {
	Chat           ChatHTTP
	Attachments    AttachmentHTTP
	WS             *WSHandler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.WS != nil {
		router.GET("/ws", h.WS.Connect)
	}

	api := router.Group("/api/v1")
	if h.Chat != nil {
		api.POST("/conversations/start", h.Chat.StartConversation)
		api.GET("/conversations", h.Chat.ListMyConversations)
		api.GET("/conversations/:id", h.Chat.GetConversation)
		api.GET("/conversations/:id/online", h.Chat.OnlineUsers)
		api.GET("/conversations/:id/messages", h.Chat.ListMessages)
		api.PATCH("/conversations/:id/read", h.Chat.MarkRead)
		api.POST("/messages", h.Chat.SendMessage)
		api.PATCH("/messages/:id", h.Chat.EditMessage)
		api.DELETE("/messages/:id", h.Chat.DeleteMessage)
		api.POST("/typing", h.Chat.Typing)
	}
	if h.Attachments != nil {
		api.POST("/attachments", h.Attachments.Upload)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

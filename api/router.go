package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/paraglide/internal/auth"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/ws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins []string
	DefaultLocale  domain.Locale
}

// NewRouter mounts every HTTP endpoint. hub may be nil, in which case /ws is
// not served.
func NewRouter(cfg RouterConfig, bookings *BookingHandler, tokens *auth.Tokens, hub *ws.Hub, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	bookings.RegisterPublic(v1)

	protected := v1.Group("/")
	protected.Use(auth.Middleware(tokens, cfg.DefaultLocale))
	bookings.Register(protected)

	if hub != nil {
		protected.GET("/ws", func(c *gin.Context) {
			sess, _ := auth.SessionFrom(c)
			if err := hub.Serve(c.Writer, c.Request, sess); err != nil {
				logger.Warn("websocket upgrade failed", zap.String("actor_id", sess.ActorID), zap.Error(err))
			}
		})
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

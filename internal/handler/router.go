package handler

import (
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"FOBI-Map/internal/metrics"
)

// NewRouter APIのルーティングを設定する
func NewRouter(grid *GridHandler, session *SessionHandler, location *LocationHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "FOBI-Map"})
		})

		api.GET("/grid", grid.GetGrid)
		api.POST("/grid", grid.PostGrid)
		api.GET("/stats", grid.GetStats)
		api.GET("/location-name", location.GetLocationName)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", session.PostSession)
			sessions.POST("/:id/viewport", session.PostViewport)
			sessions.PUT("/:id/filter", session.PutFilter)
			sessions.GET("/:id/grid", session.GetGrid)
			sessions.GET("/:id/cells/:key/records", session.GetCellRecords)
			sessions.DELETE("/:id", session.DeleteSession)
		}
	}
	return r
}

// accessLog リクエストごとにメソッド・パス・ステータス・所要時間を記録する
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("http_access")
	}
}

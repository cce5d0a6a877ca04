package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayoubachak/marksim/internal/orchestrator"
)

// NewRouter builds the demo gin HTTP surface: health, stats, depth, and a
// websocket upgrade endpoint serving hub. Follows cmd/server main.go's
// pattern of registering a handlers.HTTPHandlers on top of a
// library-agnostic service registry.
func NewRouter(o *orchestrator.Orchestrator, hub *Hub, depthLevels int) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.GetStats())
	})

	r.GET("/depth", func(c *gin.Context) {
		levels := depthLevels
		c.JSON(http.StatusOK, o.GetOrderBookDepth(levels))
	})

	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	return r
}

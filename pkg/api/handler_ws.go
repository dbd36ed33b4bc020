package api

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// wsHandler upgrades HTTP connections to WebSocket and delegates to ConnectionManager.
func (s *Server) wsHandler(c *gin.Context) {
	if s.connManager == nil {
		abortWithError(c, newAPIError(http.StatusServiceUnavailable, "WebSocket not available"))
		return
	}

	// Upgrade HTTP to WebSocket
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: s.resolveWSOriginPatterns(),
	})
	if err != nil {
		abortWithError(c, newAPIError(http.StatusBadRequest, err.Error()))
		return
	}

	// Register connection with the ConnectionManager.
	// HandleConnection blocks until the WebSocket closes.
	s.connManager.HandleConnection(c.Request.Context(), conn)
}

package events

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The backend serves a local single-user UI, possibly from another port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes mounts the websocket change feed under /events.
func RegisterRoutes(router *gin.Engine) *Hub {
	hub := NewHub()

	router.GET("/events/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		hub.add(conn)

		// Drain control frames until the client goes away.
		go func() {
			defer hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	return hub
}

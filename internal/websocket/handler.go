package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers a hub client for the connection and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, userID string) {
	client := NewClient(hub, c, userID, hub.logger)
	if !hub.join(client) {
		return
	}

	go client.writePump()
	client.readPump()
}

// ServeClient runs the pumps of a client that is not attached to a hub.
func ServeClient(client *Client) {
	go client.writePump()
	client.readPump()
}

package bingo

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and attaches the connection to h. sendBuffer
// is how many outbound frames may queue before the client is dropped.
func ServeWS(h *Hub, sendBuffer int) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logf("SERVE: Websocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan Message, sendBuffer),
		}

		go client.writePump()

		h.Register(client)
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		h.Submit(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

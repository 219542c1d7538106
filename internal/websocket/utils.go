package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// pongWait is how long a silent client is tolerated. Clients ping more
	// often than this while the exam is open.
	pongWait = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
// gorilla connections allow one concurrent writer; callers serialize.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// ReadMessage reads one raw frame, giving up after pongWait of silence.
func ReadMessage(conn *websocket.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	_, data, err := conn.ReadMessage()
	return data, err
}

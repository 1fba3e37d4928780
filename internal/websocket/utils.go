package websocket

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prepaconcours/prepa-backend/internal/response"
)

const (
	writeWait = 10 * time.Second
	// Clients must send at least one message (a ping will do) within readWait.
	readWait = 5 * time.Minute
)

// Conn serializes writes to a WebSocket. Session events arrive from timer
// goroutines while the read loop answers client actions.
type Conn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewConn wraps an upgraded connection.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse with the code's French message.
func (c *Conn) WriteError(code response.ErrCode, fields map[string]string) error {
	return c.WriteTyped(ErrorResponse{
		Event:   EventError,
		Code:    code,
		Message: response.GetMessage(code),
		Fields:  fields,
	})
}

// ReadRequest reads and decodes one client message with a read deadline.
func (c *Conn) ReadRequest(req *Request) error {
	c.conn.SetReadDeadline(time.Now().Add(readWait))
	return c.conn.ReadJSON(req)
}

// DecodeValue decodes an answer value keeping numbers as json.Number.
func DecodeValue(raw json.RawMessage) (any, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

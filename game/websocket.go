package game

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type websocketConnection struct {
	socket *websocket.Conn
}

func (wc *websocketConnection) Write(data []byte) error {
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *websocketConnection) Ping() error {
	return wc.socket.WriteMessage(websocket.PingMessage, nil)
}

func (wc *websocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *websocketConnection) Close(errCode string) {
	wc.socket.SetWriteDeadline(time.Now().Add(time.Second * 20))
	wc.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, errCode))
	wc.socket.Close()
}

func newWebsocketConnection(conn *websocket.Conn) websocketConnection {
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(time.Minute))
		return nil
	})
	return websocketConnection{conn}
}

const (
	outboxSize   = 64
	pingInterval = 30 * time.Second
)

// wsClient owns one player's connection. Snapshots flow through the outbox
// so a slow reader never blocks the store's notify fan-out; a client that
// falls too far behind is dropped.
type wsClient struct {
	conn      websocketConnection
	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn websocketConnection) *wsClient {
	return &wsClient{
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
}

// send queues data for the write pump. It reports false when the outbox is
// full, which the caller treats as a dead client.
func (c *wsClient) send(data []byte) bool {
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) writePump() {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.conn.Write(data); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := c.conn.Ping(); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// close is safe to call from both the watch callback and the read loop's
// deferred cleanup; only the first caller closes the channel and the socket.
func (c *wsClient) close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close(reason)
	})
}

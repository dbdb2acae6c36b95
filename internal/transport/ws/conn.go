package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/presence-service/internal/presence"

	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed   = errors.New("ws: connection closed")
	ErrSlowConsumer = errors.New("ws: send buffer full")
)

// wsConn: presence.Sender поверх gorilla. Send только ставит сообщение в
// очередь, в сокет пишет единственная горутина writeLoop.
type wsConn struct {
	conn *websocket.Conn
	send chan presence.Message
	done chan struct{}
	once sync.Once

	pingEvery    time.Duration
	writeTimeout time.Duration
}

func newWsConn(conn *websocket.Conn, opts Options) *wsConn {
	return &wsConn{
		conn:         conn,
		send:         make(chan presence.Message, opts.SendBuffer),
		done:         make(chan struct{}),
		pingEvery:    opts.PingEvery,
		writeTimeout: opts.WriteTimeout,
	}
}

// Send не блокируется. Клиент, который не успевает читать, отключается.
func (c *wsConn) Send(msg presence.Message) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		_ = c.Close()
		return ErrSlowConsumer
	}
}

// Close просит writeLoop дописать очередь и закрыть сокет.
func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *wsConn) writeLoop(log *slog.Logger) {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				log.Debug("ws write failed", "type", msg.Type, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				log.Debug("ws ping failed", "err", err)
				_ = c.Close()
				return
			}
		case <-c.done:
			c.flush(log)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeTimeout))
			return
		}
	}
}

// flush дописывает то, что уже в очереди (например new-tab перед закрытием).
func (c *wsConn) flush(log *slog.Logger) {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				log.Debug("ws flush failed", "type", msg.Type, "err", err)
				return
			}
		default:
			return
		}
	}
}

func (c *wsConn) write(msg presence.Message) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(msg)
}

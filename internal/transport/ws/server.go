package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/presence-service/internal/presence"
	"github.com/cwrk-planet/presence-service/pkg/logger"

	"github.com/gorilla/websocket"
)

type Options struct {
	PingEvery    time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	SendBuffer   int
}

func (o *Options) withDefaults() {
	if o.PingEvery <= 0 {
		o.PingEvery = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *presence.Hub
	log      *slog.Logger
	opts     Options
}

func NewServer(hub *presence.Hub, log *slog.Logger, opts Options) *Server {
	opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub:  hub,
		log:  log,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin проверяет CORS на уровне роутера
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WS endpoint: GET /ws. Аутентификация: токеном в сообщении join.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		s.log.Warn("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	out := newWsConn(conn, s.opts)
	client := s.hub.Connect(out)
	log := logger.FromCtx(r.Context(), s.log).With("conn_id", client.ID(), "remote", r.RemoteAddr)
	log.Debug("ws connected")

	go out.writeLoop(log)
	s.readLoop(r, conn, client, log)

	client.Close()
	_ = out.Close()
	log.Debug("ws disconnected")
}

func (s *Server) readLoop(r *http.Request, conn *websocket.Conn, client *presence.Client, log *slog.Logger) {
	conn.SetReadLimit(s.opts.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingEvery))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingEvery))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("ws read failed", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * s.opts.PingEvery))

		if err := client.Handle(r.Context(), data); err != nil {
			log.Warn("ws join refused", "err", err)
			return
		}
	}
}

package presence

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
)

// moveEpsilon гасит шум дробных координат клиента.
const moveEpsilon = 0.001

// Client: обработчик сообщений одного соединения. Handle вызывается
// последовательно из read loop транспорта.
type Client struct {
	hub *Hub
	p   *Principal
	log *slog.Logger
}

func (c *Client) ID() string { return c.p.id }

// Handle разбирает и выполняет одно входящее сообщение. Ошибка означает,
// что соединение нужно закрыть (провал join). Всё некорректное молча
// игнорируется.
func (c *Client) Handle(ctx context.Context, data []byte) error {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Debug("malformed message", "err", err)
		return nil
	}

	switch msg.Type {
	case TypeJoin:
		var req JoinPayload
		if !c.decode(msg, &req) {
			return nil
		}
		return c.join(ctx, req)
	case TypeMove:
		var req MovePayload
		if c.decode(msg, &req) {
			c.move(req)
		}
	case TypeRunProximity:
		c.runProximity()
	case TypeSendRequest:
		var req RequestPayload
		if c.decode(msg, &req) && c.singleTarget(msg.Type, req) {
			c.hub.sendRequest(c.p, req.User)
		}
	case TypeAcceptRequest:
		var req RequestPayload
		if c.decode(msg, &req) && c.singleTarget(msg.Type, req) {
			c.hub.acceptRequest(c.p, req.User)
		}
	case TypeRejectRequest:
		var req RequestPayload
		if c.decode(msg, &req) && c.singleTarget(msg.Type, req) {
			c.hub.rejectRequest(c.p, req.User)
		}
	case TypeChatMessage:
		var req ChatPayload
		if c.decode(msg, &req) {
			c.hub.chat(c.p, req)
		}
	default:
		c.log.Debug("unknown message type", "type", msg.Type)
	}
	return nil
}

// Close: очистка при закрытии транспорта. Идемпотентна.
func (c *Client) Close() {
	c.hub.mu.Lock()
	first := !c.p.gone && c.p.joined
	c.hub.leave(c.p)
	pos := Point{X: c.p.x, Y: c.p.y}
	c.hub.mu.Unlock()

	if first {
		c.log.Info("left space", "space_id", c.p.spaceID, "x", pos.X, "y", pos.Y)
	}
}

func (c *Client) decode(msg inbound, dst any) bool {
	if len(msg.Payload) == 0 {
		// run-proximity и подобные приходят без payload
		return true
	}
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		c.log.Debug("malformed payload", "type", msg.Type, "err", err)
		return false
	}
	return true
}

func (c *Client) singleTarget(typ string, req RequestPayload) bool {
	if req.User != "" {
		return true
	}
	if len(req.Users) > 0 {
		c.log.Debug("batched request payload is not supported", "type", typ, "users", len(req.Users))
	}
	return false
}

func (c *Client) move(req MovePayload) {
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	p := c.p
	if !p.active() {
		return
	}

	dx := math.Abs(req.X - float64(p.x))
	dy := math.Abs(req.Y - float64(p.y))
	if !isUnitStep(dx, dy) {
		h.send(p, Message{
			Type:    TypeMovementRejected,
			Payload: PeerPosition{ID: p.id, X: p.x, Y: p.y},
		})
		return
	}

	p.x = int(math.Round(req.X))
	p.y = int(math.Round(req.Y))
	if req.Animation != "" {
		p.animation = req.Animation
	}

	h.rooms.Broadcast(Message{
		Type: TypeMovement,
		Payload: MovementPayload{
			ID:        p.id,
			X:         p.x,
			Y:         p.y,
			Animation: p.animation,
		},
	}, p, p.spaceID)

	h.runProximity(p, false)
}

// isUnitStep: не больше одной клетки строго по одной оси.
func isUnitStep(dx, dy float64) bool {
	withinX := dx <= 1+moveEpsilon && dy <= moveEpsilon
	withinY := dy <= 1+moveEpsilon && dx <= moveEpsilon
	return withinX || withinY
}

func (c *Client) runProximity() {
	h := c.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if !c.p.active() {
		return
	}
	h.runProximity(c.p, true)
}

package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("join: unauthenticated")
	ErrUnknownSpace    = errors.New("join: unknown space")
	ErrUnknownAccount  = errors.New("join: unknown account")
	ErrSpawnFailed     = errors.New("join: spawn resolution failed")
)

func (c *Client) join(ctx context.Context, req JoinPayload) error {
	h := c.hub
	p := c.p

	h.mu.Lock()
	if p.joining || p.joined || p.gone {
		h.mu.Unlock()
		return nil
	}
	p.joining = true
	h.mu.Unlock()

	accountID, err := h.auth.Authenticate(req.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	space, err := h.spaces.GetSpace(ctx, req.SpaceID)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrUnknownSpace, req.SpaceID, err)
	}

	name, err := h.accounts.DisplayName(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrUnknownAccount, accountID, err)
	}

	// одна вкладка на (account, space): старую выгоняем до чтения позиции,
	// чтобы её финальная запись успела попасть в хранилище
	h.mu.Lock()
	old := h.rooms.FindByAccount(accountID, space.ID)
	if old != nil {
		h.kick(old)
	}
	h.mu.Unlock()
	if old != nil {
		h.closeKicked(ctx, old)
	}

	spawn, err := h.resolveSpawn(ctx, accountID, space)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	h.mu.Lock()
	if p.gone {
		h.mu.Unlock()
		return nil
	}
	// пока читали позицию, могла подключиться ещё одна вкладка
	other := h.rooms.FindByAccount(accountID, space.ID)
	if other != nil {
		h.kick(other)
	}

	p.accountID = accountID
	p.displayName = name
	p.spaceID = space.ID
	p.x, p.y = spawn.X, spawn.Y
	p.joining = false
	p.joined = true

	h.rooms.Add(space.ID, p)

	users := make([]PeerPosition, 0)
	for _, u := range h.rooms.Members(space.ID) {
		if u.id == p.id {
			continue
		}
		users = append(users, PeerPosition{ID: u.id, X: u.x, Y: u.y})
	}

	h.send(p, Message{
		Type: TypeSpaceJoined,
		Payload: SpaceJoinedPayload{
			ID:       p.id,
			UserID:   accountID,
			UserName: name,
			Spawn:    Point{X: p.x, Y: p.y},
			Users:    users,
		},
	})
	h.rooms.Broadcast(Message{
		Type:    TypeUserJoined,
		Payload: PeerPosition{ID: p.id, X: p.x, Y: p.y},
	}, p, space.ID)

	p.saver = h.startSaver(p)
	h.mu.Unlock()

	if other != nil {
		h.closeKicked(ctx, other)
	}

	c.log.Info("joined space",
		"space_id", space.ID, "account_id", accountID, "x", spawn.X, "y", spawn.Y, "kicked", old != nil || other != nil)
	return nil
}

// resolveSpawn: сохранённая клетка или случайная внутри карты, сразу записанная в хранилище.
func (h *Hub) resolveSpawn(ctx context.Context, accountID string, space *domain.Space) (Point, error) {
	pos, err := h.positions.FindPosition(ctx, accountID, space.ID)
	if err == nil {
		return Point{X: pos.X, Y: pos.Y}, nil
	}
	if !errors.Is(err, domain.ErrPositionNotFound) {
		return Point{}, err
	}

	cols, rows := space.GridSize(h.opts.TileSize)
	created, err := h.positions.CreatePosition(ctx, accountID, space.ID, h.intn(cols), h.intn(rows))
	if err != nil {
		return Point{}, err
	}
	return Point{X: created.X, Y: created.Y}, nil
}

// kick отправляет new-tab и чистит старое соединение. Вызывается под mu.
func (h *Hub) kick(old *Principal) {
	h.send(old, Message{Type: TypeNewTab, Payload: empty{}})
	h.leave(old)
}

// closeKicked закрывает транспорт выгнанного соединения и ждёт его финальную запись позиции.
func (h *Hub) closeKicked(ctx context.Context, old *Principal) {
	if err := old.out.Close(); err != nil {
		h.log.Debug("close kicked connection", "conn_id", old.id, "err", err)
	}
	if old.saver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*h.opts.SaveTimeout)
	defer cancel()
	old.saver.wait(ctx)
}

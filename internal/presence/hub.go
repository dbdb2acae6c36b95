package presence

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/google/uuid"
)

type Authenticator interface {
	Authenticate(token string) (accountID string, err error)
}

type SpaceStore interface {
	GetSpace(ctx context.Context, id string) (*domain.Space, error)
}

type AccountStore interface {
	DisplayName(ctx context.Context, accountID string) (string, error)
}

type PositionStore interface {
	FindPosition(ctx context.Context, accountID, spaceID string) (*domain.Position, error)
	CreatePosition(ctx context.Context, accountID, spaceID string, x, y int) (*domain.Position, error)
	UpdatePosition(ctx context.Context, accountID, spaceID string, x, y int) error
}

type Deps struct {
	Auth      Authenticator
	Spaces    SpaceStore
	Accounts  AccountStore
	Positions PositionStore
	Logger    *slog.Logger
}

type Options struct {
	SaveInterval    time.Duration
	SaveTimeout     time.Duration
	ProximityRadius int
	TileSize        int
	MaxChatLength   int
}

func (o *Options) withDefaults() {
	if o.SaveInterval <= 0 {
		o.SaveInterval = 3 * time.Second
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = 2 * time.Second
	}
	if o.ProximityRadius <= 0 {
		o.ProximityRadius = 1
	}
	if o.TileSize <= 0 {
		o.TileSize = 16
	}
	if o.MaxChatLength <= 0 {
		o.MaxChatLength = 4000
	}
}

// Hub владеет реестрами комнат и сессий. mu: единая транзакция над
// состоянием игроков: проверка и изменение двух игроков (accept/reject,
// потеря близости) идут в одной критической секции. Под mu нет сетевых
// и БД вызовов, только неблокирующие Send.
type Hub struct {
	mu       sync.Mutex
	rooms    *RoomRegistry
	sessions *SessionRegistry

	auth      Authenticator
	spaces    SpaceStore
	accounts  AccountStore
	positions PositionStore

	opts  Options
	log   *slog.Logger
	intn  func(n int) int
	newID func() string
}

func NewHub(deps Deps, opts Options) *Hub {
	opts.withDefaults()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms:     NewRoomRegistry(),
		sessions:  NewSessionRegistry(),
		auth:      deps.Auth,
		spaces:    deps.Spaces,
		accounts:  deps.Accounts,
		positions: deps.Positions,
		opts:      opts,
		log:       log,
		intn:      rand.IntN,
		newID:     uuid.NewString,
	}
}

func (h *Hub) Rooms() *RoomRegistry       { return h.rooms }
func (h *Hub) Sessions() *SessionRegistry { return h.sessions }

// Connect регистрирует новое транспортное соединение. До join игрок не
// состоит ни в одной комнате.
func (h *Hub) Connect(out Sender) *Client {
	p := newPrincipal(h.newID(), out)
	return &Client{
		hub: h,
		p:   p,
		log: h.log.With("conn_id", p.id),
	}
}

// Snapshot: текущие игроки space.
func (h *Hub) Snapshot(spaceID string) []PrincipalView {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms.Members(spaceID)
	out := make([]PrincipalView, 0, len(members))
	for _, p := range members {
		out = append(out, p.view())
	}
	return out
}

// send пишет одному игроку. Ушедшим ничего не отправляем.
func (h *Hub) send(p *Principal, msg Message) {
	if p.gone {
		return
	}
	if err := p.out.Send(msg); err != nil {
		h.log.Debug("send failed", "conn_id", p.id, "type", msg.Type, "err", err)
	}
}

// announce рассылает доступность p всей комнате и самому p: Broadcast
// исключает отправителя. Об ушедших комната узнаёт из user-left.
func (h *Hub) announce(p *Principal) {
	if p.gone {
		return
	}
	msg := Message{
		Type: TypeAvailabilityUpdate,
		Payload: AvailabilityPayload{
			UserID:       p.id,
			Availability: p.availability(),
		},
	}
	h.rooms.Broadcast(msg, p, p.spaceID)
	h.send(p, msg)
}

func (h *Hub) peer(p *Principal, id string) *Principal {
	if id == "" {
		return nil
	}
	return h.rooms.FindByConnection(id, p.spaceID)
}

// Shutdown отключает всех игроков и ждёт финальной записи их позиций, но не дольше ctx.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	all := h.rooms.All()
	for _, p := range all {
		h.leave(p)
	}
	h.mu.Unlock()

	for _, p := range all {
		_ = p.out.Close()
	}
	for _, p := range all {
		if p.saver != nil {
			p.saver.wait(ctx)
		}
	}
	h.log.Info("presence hub stopped", "disconnected", len(all))
}

package presence

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/errs"

	"github.com/stretchr/testify/require"
)

var errClosed = errors.New("sender closed")

// recorder: Sender, запоминающий всё отправленное.
type recorder struct {
	mu     sync.Mutex
	msgs   []Message
	closed bool
}

func (r *recorder) Send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) all(typ string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) count(typ string) int { return len(r.all(typ)) }

func (r *recorder) last(t *testing.T, typ string) Message {
	t.Helper()
	msgs := r.all(typ)
	require.NotEmpty(t, msgs, "no %q message", typ)
	return msgs[len(msgs)-1]
}

// availabilityOf: последняя доступность id, которую видел получатель.
func (r *recorder) availabilityOf(t *testing.T, id string) Availability {
	t.Helper()
	var (
		last  Availability
		found bool
	)
	for _, m := range r.all(TypeAvailabilityUpdate) {
		if pl := m.Payload.(AvailabilityPayload); pl.UserID == id {
			last, found = pl.Availability, true
		}
	}
	require.True(t, found, "no availability-update for %s", id)
	return last
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type fakeAuth struct{}

// Authenticate принимает токены вида "tok:<account>".
func (fakeAuth) Authenticate(token string) (string, error) {
	id, ok := strings.CutPrefix(token, "tok:")
	if !ok || id == "" {
		return "", errs.ErrInvalidToken
	}
	return id, nil
}

type posKey struct{ account, space string }

type fakeStore struct {
	mu        sync.Mutex
	spaces    map[string]*domain.Space
	names     map[string]string
	positions map[posKey]domain.Position
	updates   int
	findErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		spaces: map[string]*domain.Space{
			"s1": {ID: "s1", Name: "office", Width: 320, Height: 160},
		},
		names:     map[string]string{},
		positions: map[posKey]domain.Position{},
	}
}

func (s *fakeStore) GetSpace(_ context.Context, id string) (*domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.spaces[id]
	if !ok {
		return nil, domain.ErrSpaceNotFound
	}
	return sp, nil
}

func (s *fakeStore) DisplayName(_ context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[accountID]
	if !ok {
		return "", domain.ErrAccountNotFound
	}
	return name, nil
}

func (s *fakeStore) FindPosition(_ context.Context, accountID, spaceID string) (*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	p, ok := s.positions[posKey{accountID, spaceID}]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	return &p, nil
}

func (s *fakeStore) CreatePosition(_ context.Context, accountID, spaceID string, x, y int) (*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := posKey{accountID, spaceID}
	if p, ok := s.positions[k]; ok {
		return &p, nil
	}
	p := domain.Position{AccountID: accountID, SpaceID: spaceID, X: x, Y: y}
	s.positions[k] = p
	return &p, nil
}

func (s *fakeStore) UpdatePosition(_ context.Context, accountID, spaceID string, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := posKey{accountID, spaceID}
	if _, ok := s.positions[k]; !ok {
		return domain.ErrPositionNotFound
	}
	s.positions[k] = domain.Position{AccountID: accountID, SpaceID: spaceID, X: x, Y: y}
	s.updates++
	return nil
}

func (s *fakeStore) account(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[id] = name
}

func (s *fakeStore) seed(account, space string, x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[posKey{account, space}] = domain.Position{AccountID: account, SpaceID: space, X: x, Y: y}
}

func (s *fakeStore) position(account, space string) (domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[posKey{account, space}]
	return p, ok
}

func (s *fakeStore) saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type fixture struct {
	t     *testing.T
	hub   *Hub
	store *fakeStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	if opts.SaveInterval == 0 {
		opts.SaveInterval = time.Hour
	}
	store := newFakeStore()
	hub := NewHub(Deps{
		Auth:      fakeAuth{},
		Spaces:    store,
		Accounts:  store,
		Positions: store,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, opts)
	return &fixture{t: t, hub: hub, store: store}
}

// join подключает аккаунт в s1 на заданную клетку.
func (f *fixture) join(account string, x, y int) (*Client, *recorder) {
	f.t.Helper()
	f.store.account(account, strings.ToUpper(account))
	f.store.seed(account, "s1", x, y)

	rec := &recorder{}
	c := f.hub.Connect(rec)
	f.t.Cleanup(c.Close)
	require.NoError(f.t, c.Handle(context.Background(), encode(f.t, TypeJoin, JoinPayload{SpaceID: "s1", Token: "tok:" + account})))
	require.Equal(f.t, 1, rec.count(TypeSpaceJoined))
	return c, rec
}

func (f *fixture) do(c *Client, typ string, payload any) {
	f.t.Helper()
	require.NoError(f.t, c.Handle(context.Background(), encode(f.t, typ, payload)))
}

func (f *fixture) request(from, to *Client) { f.do(from, TypeSendRequest, RequestPayload{User: to.ID()}) }
func (f *fixture) accept(by, from *Client)  { f.do(by, TypeAcceptRequest, RequestPayload{User: from.ID()}) }
func (f *fixture) reject(by, from *Client)  { f.do(by, TypeRejectRequest, RequestPayload{User: from.ID()}) }

func (f *fixture) moveTo(c *Client, x, y int) {
	f.do(c, TypeMove, MovePayload{X: float64(x), Y: float64(y), Animation: "RIGHT"})
}

func (f *fixture) proximity(c *Client) { f.do(c, TypeRunProximity, nil) }

func (f *fixture) state(c *Client) PrincipalView {
	f.hub.mu.Lock()
	defer f.hub.mu.Unlock()
	return c.p.view()
}

func encode(t *testing.T, typ string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(Message{Type: typ, Payload: payload})
	require.NoError(t, err)
	return data
}

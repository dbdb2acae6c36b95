package presence

import (
	"sort"
	"sync"
)

// Sender: исходящий канал соединения. Send не должен блокироваться:
// его вызывают под Hub.mu.
type Sender interface {
	Send(msg Message) error
	Close() error
}

// RoomRegistry: кто сейчас в каком space. Безопасен для конкурентного доступа.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Principal // spaceID -> connectionID -> principal
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]map[string]*Principal)}
}

func (r *RoomRegistry) Add(spaceID string, p *Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rooms[spaceID]
	if !ok {
		rs = make(map[string]*Principal)
		r.rooms[spaceID] = rs
	}
	rs[p.id] = p
}

func (r *RoomRegistry) Remove(p *Principal, spaceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rs, ok := r.rooms[spaceID]; ok {
		delete(rs, p.id)
		if len(rs) == 0 {
			delete(r.rooms, spaceID)
		}
	}
}

func (r *RoomRegistry) FindByAccount(accountID, spaceID string) *Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.rooms[spaceID] {
		if p.accountID == accountID {
			return p
		}
	}
	return nil
}

func (r *RoomRegistry) FindByConnection(id, spaceID string) *Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.rooms[spaceID][id]
}

// Members: участники space, отсортированные по id.
func (r *RoomRegistry) Members(spaceID string) []*Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedMembers(r.rooms[spaceID])
}

// All: все подключённые игроки во всех space.
func (r *RoomRegistry) All() []*Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Principal
	for _, rs := range r.rooms {
		out = append(out, sortedMembers(rs)...)
	}
	return out
}

func (r *RoomRegistry) Count(spaceID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[spaceID])
}

// Broadcast рассылает всем в space, кроме exclude. Best-effort.
func (r *RoomRegistry) Broadcast(msg Message, exclude *Principal, spaceID string) {
	for _, p := range r.Members(spaceID) {
		if exclude != nil && p.id == exclude.id {
			continue
		}
		_ = p.out.Send(msg)
	}
}

// NeighborsWithin: все, кто в квадрате |dx| <= radius, |dy| <= radius вокруг p, кроме самого p.
// Полный перебор комнаты.
func (r *RoomRegistry) NeighborsWithin(p *Principal, spaceID string, radius int) []*Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Principal
	for _, u := range r.rooms[spaceID] {
		if u.id == p.id {
			continue
		}
		if abs(u.x-p.x) <= radius && abs(u.y-p.y) <= radius {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func sortedMembers(set map[string]*Principal) []*Principal {
	out := make([]*Principal, 0, len(set))
	for _, p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

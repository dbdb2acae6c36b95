package presence

import "sync"

// SessionRegistry: участники активных чат-сессий. Сессия с менее чем
// двумя участниками из таблицы удаляется.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Principal // sessionID -> connectionID -> principal
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]map[string]*Principal)}
}

func (r *SessionRegistry) Add(sessionID string, p *Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.sessions[sessionID]
	if !ok {
		ss = make(map[string]*Principal)
		r.sessions[sessionID] = ss
	}
	ss[p.id] = p
}

// Remove убирает p из сессии и возвращает оставшихся. Если осталось меньше
// двух, сессия удаляется, а оставшихся должен освободить вызывающий.
func (r *SessionRegistry) Remove(p *Principal, sessionID string) []*Principal {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(ss, p.id)
	rest := sortedMembers(ss)
	if len(ss) < 2 {
		delete(r.sessions, sessionID)
	}
	return rest
}

// Delete удаляет сессию целиком и возвращает её участников.
func (r *SessionRegistry) Delete(sessionID string) []*Principal {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := sortedMembers(r.sessions[sessionID])
	delete(r.sessions, sessionID)
	return members
}

func (r *SessionRegistry) FindByConnection(id, sessionID string) *Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sessions[sessionID][id]
}

func (r *SessionRegistry) Members(sessionID string) []*Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedMembers(r.sessions[sessionID])
}

func (r *SessionRegistry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions[sessionID])
}

// Len: число активных сессий.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

func (r *SessionRegistry) Broadcast(msg Message, exclude *Principal, sessionID string) {
	for _, p := range r.Members(sessionID) {
		if exclude != nil && p.id == exclude.id {
			continue
		}
		_ = p.out.Send(msg)
	}
}

package presence

import "sort"

const (
	proximityEnterText = "users entered proximity"
	proximityLeaveText = "users left proximity"
)

// runProximity пересчитывает соседей p и сообщает изменения только самому p.
// stationary: пересчёт по run-proximity, а не после собственного шага.
// Вызывается под mu.
func (h *Hub) runProximity(p *Principal, stationary bool) {
	next := make(map[string]struct{})
	for _, q := range h.rooms.NeighborsWithin(p, p.spaceID, h.opts.ProximityRadius) {
		next[q.id] = struct{}{}
	}

	left, joined := diffNeighbors(p.nearby, next)

	// потеря близости может снять запрос или закрыть сессию, поэтому до событий
	for _, id := range left {
		h.onProximityLost(p, id, stationary)
	}

	if len(left) > 0 {
		h.send(p, Message{
			Type:    TypeProximityLeave,
			Payload: ProximityPayload{Users: left, Stationary: stationary, Message: proximityLeaveText},
		})
	}
	if len(joined) > 0 {
		h.send(p, Message{
			Type:    TypeProximityEnter,
			Payload: ProximityPayload{Users: joined, Stationary: stationary, Message: proximityEnterText},
		})
	}

	p.nearby = next
}

// diffNeighbors: left = prev − next, joined = next − prev, оба отсортированы.
func diffNeighbors(prev, next map[string]struct{}) (left, joined []string) {
	for id := range prev {
		if _, ok := next[id]; !ok {
			left = append(left, id)
		}
	}
	for id := range next {
		if _, ok := prev[id]; !ok {
			joined = append(joined, id)
		}
	}
	sort.Strings(left)
	sort.Strings(joined)
	return left, joined
}

// onProximityLost: p потерял из виду peerID.
func (h *Hub) onProximityLost(p *Principal, peerID string, stationary bool) {
	q := h.peer(p, peerID)
	if q == nil {
		return
	}

	h.releasePending(p, q)

	sid := p.sessionID()
	if sid == "" || q.sessionID() != sid || !p.isAdmin() {
		// участник сессией не управляет
		return
	}

	if !stationary {
		h.endSession(sid)
		return
	}
	h.evict(q, sid)
}

package presence

import (
	"fmt"
	"strings"
)

func (h *Hub) sendRequest(p *Principal, targetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !p.active() {
		return
	}

	reject := func(reason string) {
		h.log.Debug("request rejected", "conn_id", p.id, "target", targetID, "reason", reason)
		h.send(p, Message{Type: TypeRequestRejected, Payload: UserRef{User: targetID}})
	}

	q := h.peer(p, targetID)
	switch {
	case q == nil:
		reject("unknown target")
		return
	case q.id == p.id:
		reject("self")
		return
	case p.availability() != Free:
		reject("requester busy")
		return
	}

	switch st := q.state.(type) {
	case free:
		q.state = pendingIn{from: p.id}
	case sessionAdmin:
		if st.pendingFrom != "" {
			reject("target busy")
			return
		}
		st.pendingFrom = p.id
		q.state = st
	default:
		reject("target busy")
		return
	}
	p.state = pendingOut{to: q.id}

	h.send(p, Message{Type: TypeRequestSent, Payload: UserRef{User: q.id}})
	h.send(q, Message{
		Type:    TypeMessageRequest,
		Payload: MessageRequestPayload{ID: p.id, UserID: p.accountID, UserName: p.displayName},
	})
	h.announce(p)
	h.announce(q)
}

// pendingPair находит отправителя запроса, который ждёт ответа p.
func (h *Hub) pendingPair(p *Principal, requesterID string) *Principal {
	if !p.active() {
		return nil
	}
	q := h.peer(p, requesterID)
	if q == nil || p.pendingFrom() != q.id || q.pendingTo() != p.id {
		h.log.Debug("no matching request", "conn_id", p.id, "requester", requesterID, "availability", p.availability())
		return nil
	}
	return q
}

func (h *Hub) acceptRequest(p *Principal, requesterID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	q := h.pendingPair(p, requesterID)
	if q == nil {
		return
	}

	switch st := p.state.(type) {
	case pendingIn:
		sid := h.newID()
		p.state = sessionAdmin{session: sid}
		q.state = sessionMember{session: sid}
		h.sessions.Add(sid, p)
		h.sessions.Add(sid, q)

		h.send(q, Message{Type: TypeRequestAccepted, Payload: RequestAcceptedPayload{Users: []string{p.id}}})
		h.send(p, Message{Type: TypeYouAcceptedRequest, Payload: UserRef{User: q.id}})
		h.announce(p)
		h.announce(q)

		info := h.chatSession(sid, p)
		h.send(p, info)
		h.send(q, info)

	case sessionAdmin:
		st.pendingFrom = ""
		p.state = st
		q.state = sessionMember{session: st.session}
		h.sessions.Add(st.session, q)

		h.send(q, h.chatSession(st.session, p))
		h.sessions.Broadcast(Message{
			Type:    TypeNewUserJoined,
			Payload: NewUserJoinedPayload{UserName: q.displayName},
		}, q, st.session)
		h.announce(p)
		h.announce(q)
	}
}

func (h *Hub) rejectRequest(p *Principal, requesterID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	q := h.pendingPair(p, requesterID)
	if q == nil {
		return
	}

	p.clearPendingIn()
	q.state = free{}

	h.send(q, Message{Type: TypeRequestRejected, Payload: UserRef{User: p.id}})
	h.send(p, Message{Type: TypeYouRejectedRequest, Payload: UserRef{User: q.id}})
	h.announce(p)
	h.announce(q)
}

func (h *Hub) chatSession(sessionID string, admin *Principal) Message {
	return Message{
		Type: TypeChatSession,
		Payload: ChatSessionPayload{
			SessionID:   sessionID,
			NumberUsers: h.sessions.Count(sessionID),
			ChatAdmin:   admin.displayName,
		},
	}
}

// releasePending снимает запросы между a и b в обе стороны.
func (h *Hub) releasePending(a, b *Principal) {
	released := false
	for _, pair := range [][2]*Principal{{a, b}, {b, a}} {
		from, to := pair[0], pair[1]
		if from.pendingTo() != to.id || to.pendingFrom() != from.id {
			continue
		}
		from.state = free{}
		to.clearPendingIn()
		released = true
	}
	if released {
		h.announce(a)
		h.announce(b)
	}
}

// endSession разбирает сессию целиком.
func (h *Hub) endSession(sessionID string) {
	h.finishSession(h.sessions.Delete(sessionID))
}

// finishSession освобождает участников уже удалённой сессии. Админ с
// ожидающим запросом остаётся в PENDING_IN.
func (h *Hub) finishSession(members []*Principal) {
	for _, m := range members {
		if st, ok := m.state.(sessionAdmin); ok && st.pendingFrom != "" {
			m.state = pendingIn{from: st.pendingFrom}
		} else {
			m.state = free{}
		}
		h.send(m, Message{Type: TypeSessionEnded, Payload: empty{}})
		h.announce(m)
	}
}

// evict убирает одного участника. Если осталось меньше двух, сессия закрывается.
func (h *Hub) evict(q *Principal, sessionID string) {
	rest := h.sessions.Remove(q, sessionID)
	q.state = free{}
	h.send(q, Message{Type: TypeSessionEnded, Payload: empty{}})
	h.announce(q)

	for _, r := range rest {
		h.send(r, Message{
			Type: TypeUserLeftChat,
			Payload: UserLeftChatPayload{
				UserID:   q.id,
				UserName: q.displayName,
				Text:     fmt.Sprintf("%s left the chat", q.displayName),
			},
		})
	}
	if len(rest) < 2 {
		h.finishSession(rest)
	}
}

func (h *Hub) chat(p *Principal, req ChatPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !p.active() {
		return
	}
	sid := p.sessionID()
	if sid == "" || req.SessionID != sid {
		h.log.Debug("chat outside session", "conn_id", p.id, "session_id", req.SessionID)
		return
	}

	text := strings.TrimSpace(req.Message)
	if text == "" || len(text) > h.opts.MaxChatLength {
		return
	}

	h.sessions.Broadcast(Message{
		Type:    TypeInboxMessage,
		Payload: InboxMessagePayload{UserName: p.displayName, Text: text},
	}, p, sid)
}

// leave: очистка игрока: при закрытии соединения и при вытеснении новой
// вкладкой. Повторный вызов ничего не делает. Вызывается под mu.
func (h *Hub) leave(p *Principal) {
	if p.gone {
		return
	}
	p.gone = true
	if !p.joined {
		return
	}

	if p.saver != nil {
		p.saver.stop(Point{X: p.x, Y: p.y})
	}

	for _, id := range []string{p.pendingTo(), p.pendingFrom()} {
		if q := h.peer(p, id); q != nil {
			h.releasePending(p, q)
		}
	}

	if sid := p.sessionID(); sid != "" {
		if p.isAdmin() {
			h.endSession(sid)
		} else {
			h.evict(p, sid)
		}
	}

	h.rooms.Broadcast(Message{Type: TypeUserLeft, Payload: UserLeftPayload{ID: p.id}}, p, p.spaceID)
	h.rooms.Broadcast(Message{
		Type:    TypeProximityLeave,
		Payload: ProximityPayload{Users: []string{p.id}, Message: proximityLeaveText},
	}, p, p.spaceID)

	for _, q := range h.rooms.Members(p.spaceID) {
		delete(q.nearby, p.id)
	}
	h.rooms.Remove(p, p.spaceID)
}

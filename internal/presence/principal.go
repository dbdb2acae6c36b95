package presence

// Principal: серверное состояние одного живого соединения.
// Все поля, кроме id и out, читаются и меняются только под Hub.mu.
type Principal struct {
	id  string
	out Sender

	accountID   string
	displayName string
	spaceID     string
	x, y        int
	animation   string

	state  negotiation
	nearby map[string]struct{}
	saver  *positionSaver

	joining bool
	joined  bool
	gone    bool
}

func newPrincipal(id string, out Sender) *Principal {
	return &Principal{
		id:        id,
		out:       out,
		animation: "DOWN",
		state:     free{},
		nearby:    make(map[string]struct{}),
	}
}

func (p *Principal) ID() string { return p.id }

func (p *Principal) active() bool { return p.joined && !p.gone }

func (p *Principal) availability() Availability { return p.state.availability() }

func (p *Principal) sessionID() string {
	switch st := p.state.(type) {
	case sessionAdmin:
		return st.session
	case sessionMember:
		return st.session
	}
	return ""
}

func (p *Principal) isAdmin() bool {
	_, ok := p.state.(sessionAdmin)
	return ok
}

// pendingFrom: кто ждёт моего ответа.
func (p *Principal) pendingFrom() string {
	switch st := p.state.(type) {
	case pendingIn:
		return st.from
	case sessionAdmin:
		return st.pendingFrom
	}
	return ""
}

// pendingTo: кому я отправил запрос.
func (p *Principal) pendingTo() string {
	if st, ok := p.state.(pendingOut); ok {
		return st.to
	}
	return ""
}

// clearPendingIn снимает входящий запрос: PENDING_IN -> FREE, ADMIN_AND_PENDING_IN -> IN_SESSION_ADMIN.
func (p *Principal) clearPendingIn() {
	switch st := p.state.(type) {
	case pendingIn:
		p.state = free{}
	case sessionAdmin:
		st.pendingFrom = ""
		p.state = st
	}
}

// PrincipalView: снимок игрока для HTTP и тестов.
type PrincipalView struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	X            int          `json:"x"`
	Y            int          `json:"y"`
	Animation    string       `json:"animation"`
	Availability Availability `json:"availability"`
	SessionID    string       `json:"sessionId,omitempty"`
}

func (p *Principal) view() PrincipalView {
	return PrincipalView{
		ID:           p.id,
		UserID:       p.accountID,
		UserName:     p.displayName,
		X:            p.x,
		Y:            p.y,
		Animation:    p.animation,
		Availability: p.availability(),
		SessionID:    p.sessionID(),
	}
}

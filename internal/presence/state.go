package presence

type Availability string

const (
	Free              Availability = "FREE"
	PendingIn         Availability = "PENDING_IN"
	PendingOut        Availability = "PENDING_OUT"
	InSessionAdmin    Availability = "IN_SESSION_ADMIN"
	InSessionMember   Availability = "IN_SESSION_MEMBER"
	AdminAndPendingIn Availability = "ADMIN_AND_PENDING_IN"
)

// negotiation: состояние протокола запросов у игрока. Каждый вариант несёт
// только те поля, которые для него имеют смысл: нельзя быть одновременно
// PENDING_OUT и участником сессии.
//
// Входящий запрос можно получить только в FREE или IN_SESSION_ADMIN, а
// отправить только из FREE, поэтому ожидающий отправитель всегда один.
type negotiation interface {
	availability() Availability
}

type free struct{}

// pendingOut: я отправил запрос игроку to.
type pendingOut struct{ to string }

// pendingIn: игрок from ждёт моего ответа, сессии у меня нет.
type pendingIn struct{ from string }

type sessionMember struct{ session string }

// sessionAdmin: админ сессии; pendingFrom != "" даёт ADMIN_AND_PENDING_IN.
type sessionAdmin struct {
	session     string
	pendingFrom string
}

func (free) availability() Availability          { return Free }
func (pendingOut) availability() Availability    { return PendingOut }
func (pendingIn) availability() Availability     { return PendingIn }
func (sessionMember) availability() Availability { return InSessionMember }

func (s sessionAdmin) availability() Availability {
	if s.pendingFrom != "" {
		return AdminAndPendingIn
	}
	return InSessionAdmin
}

package presence

import "encoding/json"

// Входящие события от клиента
const (
	TypeJoin          = "join"
	TypeMove          = "move"
	TypeRunProximity  = "run-proximity"
	TypeSendRequest   = "send-message-request"
	TypeAcceptRequest = "message-request-accept"
	TypeRejectRequest = "message-request-reject"
	TypeChatMessage   = "chat-message"
)

// Исходящие события
const (
	TypeSpaceJoined        = "space-joined"
	TypeUserJoined         = "user-joined"
	TypeMovement           = "movement"
	TypeMovementRejected   = "movement-rejected"
	TypeNewTab             = "new-tab"
	TypeProximityEnter     = "proximity-enter"
	TypeProximityLeave     = "proximity-leave"
	TypeAvailabilityUpdate = "availability-update"
	TypeRequestSent        = "request-sent"
	TypeMessageRequest     = "message-request"
	TypeRequestAccepted    = "request-accepted"
	TypeYouAcceptedRequest = "you-accepted-request"
	TypeRequestRejected    = "request-rejected"
	TypeYouRejectedRequest = "you-rejected-request"
	TypeChatSession        = "chat-session"
	TypeNewUserJoined      = "new-user-joined"
	TypeInboxMessage       = "inbox-message"
	TypeSessionEnded       = "session-ended"
	TypeUserLeftChat       = "user-left-chat"
	TypeUserLeft           = "user-left"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// --- inbound payloads ---

type JoinPayload struct {
	SpaceID string `json:"spaceId"`
	Token   string `json:"token"`
}

// MovePayload: клиент двигается с интерполяцией, поэтому координаты дробные.
type MovePayload struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Animation string  `json:"animation"`
}

// RequestPayload: адресат запроса/ответа. Users (пакетный вариант) не поддерживается.
type RequestPayload struct {
	User  string   `json:"user"`
	Users []string `json:"users,omitempty"`
}

type ChatPayload struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	UserName  string `json:"userName,omitempty"`
}

// --- outbound payloads ---

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type PeerPosition struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

type SpaceJoinedPayload struct {
	ID       string         `json:"id"`
	UserID   string         `json:"userId"`
	UserName string         `json:"userName"`
	Spawn    Point          `json:"spawn"`
	Users    []PeerPosition `json:"users"`
}

type MovementPayload struct {
	ID        string `json:"id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Animation string `json:"animation"`
}

type ProximityPayload struct {
	Users      []string `json:"users"`
	Stationary bool     `json:"stationary"`
	Message    string   `json:"message"`
}

type AvailabilityPayload struct {
	UserID       string       `json:"userId"`
	Availability Availability `json:"availability"`
}

type UserRef struct {
	User string `json:"user"`
}

type MessageRequestPayload struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type RequestAcceptedPayload struct {
	Users []string `json:"users"`
}

type ChatSessionPayload struct {
	SessionID   string `json:"sessionId"`
	NumberUsers int    `json:"numberUsers"`
	ChatAdmin   string `json:"chatAdmin"`
}

type NewUserJoinedPayload struct {
	UserName string `json:"userName"`
}

type InboxMessagePayload struct {
	UserName string `json:"userName"`
	Text     string `json:"text"`
}

type UserLeftChatPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Text     string `json:"text"`
}

type UserLeftPayload struct {
	ID string `json:"id"`
}

type empty struct{}

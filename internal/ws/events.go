package ws

import (
	"encoding/json"
	"time"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
)

// Event names exchanged over the realtime channel.
const (
	EventJoin           = "join"
	EventJoined         = "joined"
	EventJoinError      = "join_error"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageError   = "message_error"
)

// Envelope frames every realtime payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRequest binds a connection to the identity named by its bearer token.
type JoinRequest struct {
	Token      string `json:"token"`
	IdentityID string `json:"identityId,omitempty"`
}

// SendRequest asks the server to persist and deliver a message.
type SendRequest struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Text      string `json:"text"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

// JoinedPayload acknowledges a join.
type JoinedPayload struct {
	IdentityID string `json:"identityId"`
}

// ErrorPayload carries a client-safe error message.
type ErrorPayload struct {
	Error string `json:"error"`
}

// MessagePayload is the wire form of a stored message, shared with the history endpoint.
type MessagePayload struct {
	ID            string              `json:"id"`
	From          *domain.UserSummary `json:"from"`
	To            *domain.UserSummary `json:"to"`
	Text          string              `json:"text"`
	Anonymous     bool                `json:"anonymous"`
	Undecryptable bool                `json:"undecryptable,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// ReceivePayload wraps a delivered message.
type ReceivePayload struct {
	Message MessagePayload `json:"message"`
}

// NewMessagePayload converts a decrypted message into its wire form.
func NewMessagePayload(m domain.Message) MessagePayload {
	from, to := m.From, m.To
	if from == nil {
		from = &domain.UserSummary{ID: m.FromID}
	}
	if to == nil {
		to = &domain.UserSummary{ID: m.ToID}
	}
	return MessagePayload{
		ID:            m.ID,
		From:          from,
		To:            to,
		Text:          m.Text,
		Anonymous:     m.Anonymous,
		Undecryptable: m.Undecryptable,
		CreatedAt:     m.CreatedAt,
	}
}

// Encode marshals an event frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

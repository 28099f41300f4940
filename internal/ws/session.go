package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	jwtpkg "github.com/alvinkenyagah/hope-connect-server/pkg/jwt"
)

const sendFailed = "Failed to send message."

// Authenticator verifies a bearer token presented at join.
type Authenticator interface {
	Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error)
}

// Sender persists a message on behalf of a joined identity and returns it decrypted.
type Sender interface {
	Send(ctx context.Context, sender *domain.User, toID, text string, anonymous bool) (*domain.Message, error)
}

// Session is the per-connection state machine: unjoined until a valid join, then joined to the
// channel of the token's identity. It is driven by a single read loop.
type Session struct {
	hub    *Hub
	conn   Subscriber
	auth   Authenticator
	sender Sender
	log    *slog.Logger
	user   *domain.User
}

// NewSession binds a connection to the hub and services.
func NewSession(hub *Hub, conn Subscriber, auth Authenticator, sender Sender, logger *slog.Logger) *Session {
	return &Session{hub: hub, conn: conn, auth: auth, sender: sender, log: logger}
}

// Identity returns the joined identity, or nil before a successful join.
func (s *Session) Identity() *domain.User {
	return s.user
}

// Handle processes one inbound frame.
func (s *Session) Handle(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.reply(EventMessageError, ErrorPayload{Error: "invalid frame"})
		return
	}
	switch env.Event {
	case EventJoin:
		s.join(ctx, env.Data)
	case EventSendMessage:
		s.sendMessage(ctx, env.Data)
	default:
		s.reply(EventMessageError, ErrorPayload{Error: "unknown event"})
	}
}

// Close removes the connection from the registry.
func (s *Session) Close() {
	s.leave()
}

func (s *Session) leave() {
	if s.user == nil {
		return
	}
	s.hub.Unregister(s.user.ID, s.conn)
	s.log.Debug("realtime connection left", "identity_id", s.user.ID)
	s.user = nil
}

// join always drops any earlier membership first, so a failed join leaves the connection unjoined.
func (s *Session) join(ctx context.Context, data json.RawMessage) {
	s.leave()

	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(EventJoinError, ErrorPayload{Error: "invalid join payload"})
		return
	}
	user, _, err := s.auth.Authorize(ctx, req.Token)
	if err != nil {
		msg, _ := apperr.Public(err)
		if !apperr.Is(err, apperr.KindAuth) {
			s.log.Error("realtime join failed", "error", err)
		}
		s.reply(EventJoinError, ErrorPayload{Error: msg})
		return
	}
	if req.IdentityID != "" && req.IdentityID != user.ID {
		s.reply(EventJoinError, ErrorPayload{Error: "identity does not match token"})
		return
	}

	s.user = user
	s.hub.Register(user.ID, s.conn)
	s.log.Debug("realtime connection joined", "identity_id", user.ID, "connections", s.hub.Count(user.ID))
	s.reply(EventJoined, JoinedPayload{IdentityID: user.ID})
}

func (s *Session) sendMessage(ctx context.Context, data json.RawMessage) {
	if s.user == nil {
		s.reply(EventMessageError, ErrorPayload{Error: "join before sending messages"})
		return
	}
	var req SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(EventMessageError, ErrorPayload{Error: "invalid message payload"})
		return
	}
	if req.From != "" && req.From != s.user.ID {
		s.reply(EventMessageError, ErrorPayload{Error: "sender does not match joined identity"})
		return
	}

	msg, err := s.sender.Send(ctx, s.user, req.To, req.Text, req.Anonymous)
	if err != nil {
		public := sendFailed
		if apperr.KindOf(err) == apperr.KindInternal {
			s.log.Error("realtime send failed", "from", s.user.ID, "to", req.To, "error", err)
		} else {
			public, _ = apperr.Public(err)
		}
		s.reply(EventMessageError, ErrorPayload{Error: public})
		return
	}

	frame, err := Encode(EventReceiveMessage, ReceivePayload{Message: NewMessagePayload(*msg)})
	if err != nil {
		s.log.Error("encode realtime message", "error", err)
		return
	}
	recipients := s.hub.Publish(msg.ToID, frame, nil)
	echoes := s.hub.Publish(msg.FromID, frame, s.conn)
	s.log.Debug("message delivered", "message_id", msg.ID, "recipients", recipients, "sender_devices", echoes)
}

func (s *Session) reply(event string, data any) {
	frame, err := Encode(event, data)
	if err != nil {
		s.log.Error("encode realtime reply", "event", event, "error", err)
		return
	}
	if err := s.conn.Send(frame); err != nil {
		s.log.Debug("realtime reply dropped", "event", event, "error", err)
	}
}

// Package chat persists encrypted messages and reads conversations back in plaintext.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/alvinkenyagah/hope-connect-server/internal/apperr"
	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/repository"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/access"
	"github.com/alvinkenyagah/hope-connect-server/pkg/crypto"
)

// MaxTextLength bounds a single message body in characters.
const MaxTextLength = 4000

// ErrCodecDisabled is returned when a send is attempted without an encryption key.
var ErrCodecDisabled = errors.New("chat: message encryption is not configured")

// Service wraps message storage with the crypto codec and the conversation policy.
type Service struct {
	messages repository.MessageRepository
	access   access.Engine
	codec    *crypto.Codec
	logger   *slog.Logger
}

// New constructs a Service.
func New(messages repository.MessageRepository, engine access.Engine, codec *crypto.Codec, logger *slog.Logger) Service {
	return Service{messages: messages, access: engine, codec: codec, logger: logger}
}

// Send checks the conversation policy for sender and persists the message. The returned message
// is re-read from the store and decrypted, ready for delivery.
func (s Service) Send(ctx context.Context, sender *domain.User, toID, text string, anonymous bool) (*domain.Message, error) {
	toID = strings.TrimSpace(toID)
	if toID == "" {
		return nil, apperr.Validation("to", "recipient is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("text", "message text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, apperr.Validation("text", "message text is too long")
	}
	if _, err := s.access.RequireConversation(ctx, sender, toID); err != nil {
		return nil, err
	}
	return s.CreateMessage(ctx, sender.ID, toID, text, anonymous)
}

// CreateMessage encrypts text and stores it without consulting the conversation policy.
func (s Service) CreateMessage(ctx context.Context, fromID, toID, text string, anonymous bool) (*domain.Message, error) {
	if !s.codec.Enabled() {
		return nil, apperr.Internal(ErrCodecDisabled)
	}
	envelope, err := s.codec.Encrypt(text)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	msg := &domain.Message{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		Text:      envelope,
		Anonymous: anonymous,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, apperr.NotFound("recipient not found")
		}
		return nil, apperr.Internal(err)
	}

	stored, err := s.messages.GetMessage(ctx, msg.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.open(stored)
	s.logger.Debug("message stored", "message_id", stored.ID, "from", fromID, "to", toID, "seq", stored.Seq)
	return stored, nil
}

// History returns the decrypted conversation between two identities, oldest first.
func (s Service) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	messages, err := s.messages.ListConversation(ctx, userA, userB)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	undecryptable := 0
	for i := range messages {
		s.open(&messages[i])
		if messages[i].Undecryptable {
			undecryptable++
		}
	}
	if undecryptable > 0 {
		s.logger.Warn("conversation contains undecryptable messages", "user_a", userA, "user_b", userB, "count", undecryptable)
	}
	return messages, nil
}

// HistoryFor returns the conversation between userA and userB on behalf of caller, who must be
// one of the two participants and allowed to converse with the other.
func (s Service) HistoryFor(ctx context.Context, caller *domain.User, userA, userB string) ([]domain.Message, error) {
	if err := s.access.RequireParticipant(caller, userA, userB); err != nil {
		return nil, err
	}
	other := userA
	if other == caller.ID {
		other = userB
	}
	if _, err := s.access.RequireConversation(ctx, caller, other); err != nil {
		return nil, err
	}
	return s.History(ctx, userA, userB)
}

func (s Service) open(msg *domain.Message) {
	if !crypto.IsEnvelope(msg.Text) {
		return
	}
	plain := s.codec.Decrypt(msg.Text)
	if plain == "" && s.codec.Enabled() {
		s.logger.Warn("message could not be decrypted", "message_id", msg.ID)
		msg.Undecryptable = true
	}
	msg.Text = plain
}

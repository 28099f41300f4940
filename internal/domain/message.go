package domain

import "time"

// Message is a directed chat message. Text is ciphertext at rest and plaintext once read back.
type Message struct {
	ID            string
	Seq           int64
	FromID        string
	ToID          string
	Text          string
	Anonymous     bool
	Undecryptable bool
	CreatedAt     time.Time
	From          *UserSummary
	To            *UserSummary
}

package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

const envelopeSeparator = ":"

var (
	// ErrMissingKey is returned when no key material is configured.
	ErrMissingKey = errors.New("encryption key is empty")
	// ErrInvalidKey is returned for key material that is not 64 hex characters.
	ErrInvalidKey = errors.New("encryption key must be 64 hex characters (32 bytes)")
)

// ParseKey decodes a hex encoded AES-256 key.
func ParseKey(hexKey string) ([]byte, error) {
	trimmed := strings.TrimSpace(hexKey)
	if trimmed == "" {
		return nil, ErrMissingKey
	}
	key, err := hex.DecodeString(trimmed)
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// Codec encrypts message bodies into "ivHex:cipherHex" envelopes using AES-256-CBC.
// A zero Codec has no key and passes text through unchanged.
type Codec struct {
	key []byte
}

// NewCodec builds a Codec from a 64 character hex key.
func NewCodec(hexKey string) (*Codec, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &Codec{key: key}, nil
}

// Enabled reports whether the codec holds a key.
func (c *Codec) Enabled() bool {
	return c != nil && len(c.key) == KeySize
}

// Encrypt seals plaintext under a fresh random IV.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if !c.Enabled() {
		return plaintext, nil
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + envelopeSeparator + hex.EncodeToString(out), nil
}

// Decrypt opens an envelope produced by Encrypt.
// Text without a separator, or any text when the codec has no key, is returned unchanged.
// Envelopes that fail to decrypt yield an empty string.
func (c *Codec) Decrypt(envelope string) string {
	if !c.Enabled() || !IsEnvelope(envelope) {
		return envelope
	}
	ivHex, cipherHex, _ := strings.Cut(envelope, envelopeSeparator)
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return ""
	}
	data, err := hex.DecodeString(cipherHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return ""
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return ""
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok {
		return ""
	}
	return string(plain)
}

// IsEnvelope reports whether text has the envelope shape (contains the separator).
func IsEnvelope(text string) bool {
	return strings.Contains(text, envelopeSeparator)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}

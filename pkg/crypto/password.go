package crypto

import "golang.org/x/crypto/bcrypt"

// DefaultPasswordCost matches a 10-round salt, roughly tens of milliseconds per check.
const DefaultPasswordCost = bcrypt.DefaultCost

// HashPassword hashes plaintext using bcrypt at the default cost.
func HashPassword(plain string) ([]byte, error) {
	return HashPasswordWithCost(plain, DefaultPasswordCost)
}

// HashPasswordWithCost hashes plaintext using bcrypt, clamping cost to the supported range.
func HashPasswordWithCost(plain string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return bcrypt.GenerateFromPassword([]byte(plain), cost)
}

// ComparePassword compares plaintext to hashed secret.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}

package seed

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math/big"
	mathrand "math/rand"
)

// TokenAlphabet excludes ambiguous characters (0/O, 1/I/L)
const TokenAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultTokenLength gives a 32^6 id space, vastly larger than any class
const DefaultTokenLength = 6

// maxTokenRetries bounds the collision re-roll loop. With the id space above
// this is never hit in practice; exhausting it indicates a storage fault.
const maxTokenRetries = 100

// ErrTokenSpaceExhausted is returned when token generation keeps colliding
var ErrTokenSpaceExhausted = errors.New("could not generate a unique token")

// Derive computes the deterministic seed for a (student, challenge) pairing.
// The seed is a lowercase hex SHA-256 digest and is never persisted as a
// source of truth; callers recompute it on demand.
func Derive(studentID, challengeID, salt string) string {
	sum := sha256.Sum256([]byte(studentID + ":" + challengeID + ":" + salt))
	return hex.EncodeToString(sum[:])
}

// Rand returns a deterministic RNG sourced from a seed digest, so that
// generators are pure functions of (config, seed).
func Rand(seedHex string) *mathrand.Rand {
	raw, err := hex.DecodeString(seedHex)
	if err != nil || len(raw) < 8 {
		sum := sha256.Sum256([]byte(seedHex))
		raw = sum[:]
	}
	source := int64(binary.BigEndian.Uint64(raw[:8]))
	return mathrand.New(mathrand.NewSource(source))
}

// NewToken draws n characters from the token alphabet using crypto/rand
func NewToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenLength
	}
	token := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(TokenAlphabet))))
		if err != nil {
			return "", err
		}
		token[i] = TokenAlphabet[num.Int64()]
	}
	return string(token), nil
}

// GenerateUniqueToken re-rolls a fresh token until exists reports it unused.
// The retry loop terminates because the id space vastly exceeds class sizes.
func GenerateUniqueToken(n int, exists func(token string) (bool, error)) (string, error) {
	for i := 0; i < maxTokenRetries; i++ {
		token, err := NewToken(n)
		if err != nil {
			return "", err
		}
		taken, err := exists(token)
		if err != nil {
			return "", err
		}
		if !taken {
			return token, nil
		}
	}
	return "", ErrTokenSpaceExhausted
}

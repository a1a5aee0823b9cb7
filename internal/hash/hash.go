// Package hash implements one-way password hashing.
//
// The default scheme stores base64(salt || sha256(salt || password)).
// bcrypt can be selected for new hashes; Verify recognises both encodings so
// switching schemes does not lock existing accounts out.
package hash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const SaltSize = 16

type Scheme string

const (
	SchemeSHA256 Scheme = "sha256"
	SchemeBcrypt Scheme = "bcrypt"
)

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

type PasswordHasher struct {
	Scheme Scheme
	Cost   int
}

func New(scheme string) (*PasswordHasher, error) {
	switch Scheme(strings.ToLower(scheme)) {
	case "", SchemeSHA256:
		return &PasswordHasher{Scheme: SchemeSHA256}, nil
	case SchemeBcrypt:
		return &PasswordHasher{Scheme: SchemeBcrypt, Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.Scheme == SchemeBcrypt {
		cost := h.Cost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return HashPassword(password)
}

func (h *PasswordHasher) Verify(password, encoded string) bool {
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	}
	return CheckPassword(password, encoded)
}

// HashPassword salts with fresh random bytes on every call.
func HashPassword(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	out := make([]byte, 0, SaltSize+sha256.Size)
	out = append(out, salt...)
	out = append(out, digest(salt, password)...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// CheckPassword fails closed on anything that is not a well-formed hash.
func CheckPassword(password, encoded string) bool {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != SaltSize+sha256.Size {
		return false
	}
	salt, stored := raw[:SaltSize], raw[SaltSize:]
	return subtle.ConstantTimeCompare(digest(salt, password), stored) == 1
}

func digest(salt []byte, password string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return h.Sum(nil)
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

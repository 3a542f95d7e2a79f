// Package password hashes credentials with bcrypt and enforces a
// configurable strength policy.
package password

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoNumber    = errors.New("password must contain at least one number")
	ErrPasswordNoSpecial   = errors.New("password must contain at least one special character")
	ErrPasswordMismatch    = errors.New("password does not match")
	ErrInvalidHash         = errors.New("invalid password hash")
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Policy describes the minimum strength a password must meet before it
// is accepted for hashing.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// DefaultPolicy requires 8+ characters with mixed case and a digit.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}
}

// Hasher hashes and verifies passwords under a single cost and policy.
type Hasher struct {
	cost   int
	policy Policy
}

type Option func(*Hasher)

// WithCost overrides the bcrypt work factor. Out-of-range values are ignored.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithPolicy overrides the strength policy.
func WithPolicy(policy Policy) Option {
	return func(h *Hasher) {
		h.policy = policy
	}
}

func New(opts ...Option) *Hasher {
	h := &Hasher{cost: DefaultCost, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash derives a bcrypt hash of the password. Callers are expected to run
// Validate first; Hash does not re-check the policy.
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a plaintext password against a stored hash. It returns
// ErrPasswordMismatch on a wrong password and ErrInvalidHash when the
// stored value is not a bcrypt hash at all.
func (h *Hasher) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return ErrInvalidHash
	}
	return nil
}

// Validate checks the password against the hasher's policy and returns the
// first requirement it fails.
func (h *Hasher) Validate(password string) error {
	if len(password) < h.policy.MinLength {
		return ErrPasswordTooShort
	}

	var upper, lower, number, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsNumber(r):
			number = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	switch {
	case h.policy.RequireUpper && !upper:
		return ErrPasswordNoUppercase
	case h.policy.RequireLower && !lower:
		return ErrPasswordNoLowercase
	case h.policy.RequireNumber && !number:
		return ErrPasswordNoNumber
	case h.policy.RequireSpecial && !special:
		return ErrPasswordNoSpecial
	}

	return nil
}

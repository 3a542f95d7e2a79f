// Package profile defines hub user profiles and their roles.
package profile

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Role represents the global role of a user.
type Role string

const (
	// RoleAdmin can manage applications, users, groups, and permissions.
	RoleAdmin Role = "admin"
	// RoleUser is a regular hub user.
	RoleUser Role = "user"
)

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Profile represents a hub user.
type Profile struct {
	id           shared.ID
	email        string
	fullName     string
	avatarURL    string
	role         Role
	isActive     bool
	passwordHash *string
	lastLoginAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a new Profile with the default user role.
func New(email, fullName string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email format", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Profile{
		id:        shared.NewID(),
		email:     email,
		fullName:  strings.TrimSpace(fullName),
		role:      RoleUser,
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// NewWithPassword creates a new Profile with a local password hash.
func NewWithPassword(email, fullName, passwordHash string) (*Profile, error) {
	p, err := New(email, fullName)
	if err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("%w: password hash is required", shared.ErrValidation)
	}
	p.passwordHash = &passwordHash
	return p, nil
}

// Reconstitute recreates a Profile from persistence.
func Reconstitute(
	id shared.ID,
	email, fullName, avatarURL string,
	role Role,
	isActive bool,
	passwordHash *string,
	lastLoginAt *time.Time,
	createdAt, updatedAt time.Time,
) *Profile {
	return &Profile{
		id:           id,
		email:        email,
		fullName:     fullName,
		avatarURL:    avatarURL,
		role:         role,
		isActive:     isActive,
		passwordHash: passwordHash,
		lastLoginAt:  lastLoginAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the profile ID.
func (p *Profile) ID() shared.ID {
	return p.id
}

// Email returns the user's email.
func (p *Profile) Email() string {
	return p.email
}

// FullName returns the user's display name.
func (p *Profile) FullName() string {
	return p.fullName
}

// AvatarURL returns the user's avatar URL.
func (p *Profile) AvatarURL() string {
	return p.avatarURL
}

// Role returns the user's global role.
func (p *Profile) Role() Role {
	return p.role
}

// IsAdmin reports whether the user is an administrator.
func (p *Profile) IsAdmin() bool {
	return p.role == RoleAdmin
}

// IsActive reports whether the account is active.
func (p *Profile) IsActive() bool {
	return p.isActive
}

// PasswordHash returns the bcrypt hash for local accounts, nil otherwise.
func (p *Profile) PasswordHash() *string {
	return p.passwordHash
}

// LastLoginAt returns the last login timestamp.
func (p *Profile) LastLoginAt() *time.Time {
	return p.lastLoginAt
}

// CreatedAt returns the creation timestamp.
func (p *Profile) CreatedAt() time.Time {
	return p.createdAt
}

// UpdatedAt returns the last update timestamp.
func (p *Profile) UpdatedAt() time.Time {
	return p.updatedAt
}

// UpdateDisplay updates the user-editable display fields.
func (p *Profile) UpdateDisplay(fullName, avatarURL string) {
	p.fullName = strings.TrimSpace(fullName)
	p.avatarURL = avatarURL
	p.touch()
}

// ChangeRole changes the user's global role.
func (p *Profile) ChangeRole(role Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", shared.ErrValidation, role)
	}
	p.role = role
	p.touch()
	return nil
}

// SetPasswordHash replaces the local password hash.
func (p *Profile) SetPasswordHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: password hash is required", shared.ErrValidation)
	}
	p.passwordHash = &hash
	p.touch()
	return nil
}

// Activate re-enables the account.
func (p *Profile) Activate() {
	p.isActive = true
	p.touch()
}

// Deactivate disables the account.
func (p *Profile) Deactivate() {
	p.isActive = false
	p.touch()
}

// RecordLogin updates the last login timestamp.
func (p *Profile) RecordLogin() {
	now := time.Now().UTC()
	p.lastLoginAt = &now
	p.touch()
}

func (p *Profile) touch() {
	p.updatedAt = time.Now().UTC()
}

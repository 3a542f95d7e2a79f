package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apphubio/api/pkg/domain/profile"
	"github.com/apphubio/api/pkg/domain/shared"
)

// ProfileRepository implements profile.Repository using PostgreSQL.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, email, full_name, avatar_url, role, is_active, password_hash, last_login_at, created_at, updated_at`

// Create persists a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var passwordHash sql.NullString
	if p.PasswordHash() != nil {
		passwordHash = sql.NullString{String: *p.PasswordHash(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		p.ID().String(),
		p.Email(),
		p.FullName(),
		nullString(p.AvatarURL()),
		p.Role().String(),
		p.IsActive(),
		passwordHash,
		p.LastLoginAt(),
		p.CreatedAt(),
		p.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return profile.ErrEmailExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id shared.ID) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	return r.scanProfile(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByEmail retrieves a profile by email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

	return r.scanProfile(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// Update updates an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	query := `
		UPDATE profiles
		SET email = $2, full_name = $3, avatar_url = $4, role = $5,
			is_active = $6, password_hash = $7, last_login_at = $8, updated_at = $9
		WHERE id = $1
	`

	var passwordHash sql.NullString
	if p.PasswordHash() != nil {
		passwordHash = sql.NullString{String: *p.PasswordHash(), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		p.ID().String(),
		p.Email(),
		p.FullName(),
		nullString(p.AvatarURL()),
		p.Role().String(),
		p.IsActive(),
		passwordHash,
		p.LastLoginAt(),
		p.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return profile.ErrEmailExists
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return profile.ErrProfileNotFound
	}

	return nil
}

// Delete removes a profile. Memberships and individual grants cascade.
func (r *ProfileRepository) Delete(ctx context.Context, id shared.ID) error {
	query := `DELETE FROM profiles WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return profile.ErrProfileNotFound
	}

	return nil
}

// List lists profiles with filtering.
func (r *ProfileRepository) List(ctx context.Context, filter profile.ListFilter) ([]*profile.Profile, error) {
	query, args := r.buildListQuery(filter, false)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*profile.Profile
	for rows.Next() {
		p, err := r.scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// Count counts profiles with filtering.
func (r *ProfileRepository) Count(ctx context.Context, filter profile.ListFilter) (int64, error) {
	query, args := r.buildListQuery(filter, true)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	return count, nil
}

// ExistsByEmail checks if a profile with the given email exists.
func (r *ProfileRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM profiles WHERE email = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// CountAdmins counts active administrators.
func (r *ProfileRepository) CountAdmins(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM profiles WHERE role = 'admin' AND is_active = true`

	var count int64
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}

	return count, nil
}

func (r *ProfileRepository) buildListQuery(filter profile.ListFilter, countOnly bool) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
		argIndex   = 1
	)

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, filter.Role.String())
		argIndex++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(email ILIKE $%d OR full_name ILIKE $%d)", argIndex, argIndex))
		args = append(args, wrapLikePattern(filter.Search))
		argIndex++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	if countOnly {
		return fmt.Sprintf("SELECT COUNT(*) FROM profiles WHERE %s", whereClause), args
	}

	// SECURITY: Use allowlist to prevent SQL injection via ORDER BY
	orderBy := sortFieldFullName
	switch filter.OrderBy {
	case sortFieldFullName, sortFieldEmail, sortFieldCreatedAt:
		orderBy = filter.OrderBy
	}

	query := fmt.Sprintf(`
		SELECT `+profileColumns+`
		FROM profiles
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, sortOrderASC, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	return query, args
}

func scanProfileFields(s rowScanner) (*profile.Profile, error) {
	var (
		idStr, email, fullName, roleStr string
		avatarURL, passwordHash         sql.NullString
		isActive                        bool
		lastLoginAt                     sql.NullTime
		createdAt, updatedAt            time.Time
	)

	err := s.Scan(
		&idStr, &email, &fullName, &avatarURL, &roleStr,
		&isActive, &passwordHash, &lastLoginAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid profile ID %q: %w", idStr, err)
	}

	return profile.Reconstitute(
		id,
		email,
		fullName,
		nullStringValue(avatarURL),
		profile.Role(roleStr),
		isActive,
		nullStringPtr(passwordHash),
		nullTimeValue(lastLoginAt),
		createdAt,
		updatedAt,
	), nil
}

func (r *ProfileRepository) scanProfile(row *sql.Row) (*profile.Profile, error) {
	p, err := scanProfileFields(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) scanProfileRow(rows *sql.Rows) (*profile.Profile, error) {
	p, err := scanProfileFields(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return p, nil
}

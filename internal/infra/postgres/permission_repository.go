package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/shared"
)

// PermissionRepository implements permission.Repository using PostgreSQL.
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new PermissionRepository.
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

const permissionSelect = `
	SELECT id, user_id, application_id, access_level, granted_by, created_at, updated_at
	FROM permissions`

// Upsert creates or replaces the grant for (user, application). The pair is
// unique; a second grant replaces the level instead of erroring.
func (r *PermissionRepository) Upsert(ctx context.Context, g *permission.Grant) error {
	query := `
		INSERT INTO permissions (id, user_id, application_id, access_level, granted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, application_id)
		DO UPDATE SET access_level = EXCLUDED.access_level,
			granted_by = EXCLUDED.granted_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		g.ID().String(),
		g.UserID().String(),
		g.ApplicationID().String(),
		g.Level().String(),
		nullID(g.GrantedBy()),
		g.CreatedAt(),
		g.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert permission: %w", err)
	}

	return nil
}

// GetByUserAndApp returns the grant for (user, application).
func (r *PermissionRepository) GetByUserAndApp(ctx context.Context, userID, applicationID shared.ID) (*permission.Grant, error) {
	query := permissionSelect + ` WHERE user_id = $1 AND application_id = $2`

	g, err := scanGrantFields(r.db.QueryRowContext(ctx, query, userID.String(), applicationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, permission.ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to scan permission: %w", err)
	}

	return g, nil
}

// Delete removes the grant for (user, application). Deleting an absent grant
// is a no-op.
func (r *PermissionRepository) Delete(ctx context.Context, userID, applicationID shared.ID) error {
	query := `DELETE FROM permissions WHERE user_id = $1 AND application_id = $2`

	_, err := r.db.ExecContext(ctx, query, userID.String(), applicationID.String())
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	return nil
}

// ListByUser returns all grants for a user.
func (r *PermissionRepository) ListByUser(ctx context.Context, userID shared.ID) ([]*permission.Grant, error) {
	query := permissionSelect + ` WHERE user_id = $1`

	return r.queryGrants(ctx, query, userID.String())
}

// ListByApplication returns all grants for an application.
func (r *PermissionRepository) ListByApplication(ctx context.Context, applicationID shared.ID) ([]*permission.Grant, error) {
	query := permissionSelect + ` WHERE application_id = $1`

	return r.queryGrants(ctx, query, applicationID.String())
}

// ListAll returns every individual grant.
func (r *PermissionRepository) ListAll(ctx context.Context) ([]*permission.Grant, error) {
	return r.queryGrants(ctx, permissionSelect)
}

func (r *PermissionRepository) queryGrants(ctx context.Context, query string, args ...any) ([]*permission.Grant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var grants []*permission.Grant
	for rows.Next() {
		g, err := scanGrantFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

func scanGrantFields(s rowScanner) (*permission.Grant, error) {
	var (
		idStr, userIDStr, appIDStr, levelStr string
		grantedBy                            sql.NullString
		createdAt, updatedAt                 time.Time
	)

	err := s.Scan(&idStr, &userIDStr, &appIDStr, &levelStr, &grantedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid permission ID %q: %w", idStr, err)
	}
	userID, err := shared.IDFromString(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID %q: %w", userIDStr, err)
	}
	appID, err := shared.IDFromString(appIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid application ID %q: %w", appIDStr, err)
	}

	return permission.ReconstituteGrant(
		id,
		userID,
		appID,
		permission.AccessLevel(levelStr),
		parseNullID(grantedBy),
		createdAt,
		updatedAt,
	), nil
}

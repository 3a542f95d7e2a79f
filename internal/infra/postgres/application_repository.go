package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apphubio/api/pkg/domain/application"
	"github.com/apphubio/api/pkg/domain/shared"
)

// ApplicationRepository implements application.Repository using PostgreSQL.
type ApplicationRepository struct {
	db *DB
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(db *DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, name, description, icon, color, url, tier, is_public, is_active, display_order, created_at, updated_at`

// Create persists a new application.
func (r *ApplicationRepository) Create(ctx context.Context, a *application.Application) error {
	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.Name(),
		a.Description(),
		nullString(a.Icon()),
		nullString(a.Color()),
		a.URL(),
		a.Tier().String(),
		a.IsPublic(),
		a.IsActive(),
		a.DisplayOrder(),
		a.CreatedAt(),
		a.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return application.ErrNameExists
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// GetByID retrieves an application by ID.
func (r *ApplicationRepository) GetByID(ctx context.Context, id shared.ID) (*application.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	return r.scanApplication(r.db.QueryRowContext(ctx, query, id.String()))
}

// Update updates an existing application.
func (r *ApplicationRepository) Update(ctx context.Context, a *application.Application) error {
	query := `
		UPDATE applications
		SET name = $2, description = $3, icon = $4, color = $5, url = $6,
			tier = $7, is_public = $8, is_active = $9, display_order = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.Name(),
		a.Description(),
		nullString(a.Icon()),
		nullString(a.Color()),
		a.URL(),
		a.Tier().String(),
		a.IsPublic(),
		a.IsActive(),
		a.DisplayOrder(),
		a.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return application.ErrNameExists
		}
		return fmt.Errorf("failed to update application: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return application.ErrApplicationNotFound
	}

	return nil
}

// Delete removes an application. Grants referencing it cascade.
func (r *ApplicationRepository) Delete(ctx context.Context, id shared.ID) error {
	query := `DELETE FROM applications WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return application.ErrApplicationNotFound
	}

	return nil
}

// List lists applications ordered by (tier, display_order, name).
func (r *ApplicationRepository) List(ctx context.Context, filter application.ListFilter) ([]*application.Application, error) {
	query, args := r.buildListQuery(filter, false)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*application.Application
	for rows.Next() {
		a, err := r.scanApplicationRow(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}

	return apps, rows.Err()
}

// Count counts applications with filtering.
func (r *ApplicationRepository) Count(ctx context.Context, filter application.ListFilter) (int64, error) {
	query, args := r.buildListQuery(filter, true)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}

	return count, nil
}

// ExistsByName checks if an application with the given name exists.
func (r *ApplicationRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM applications WHERE name = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name existence: %w", err)
	}

	return exists, nil
}

// Reorder persists a new display order for the given applications.
func (r *ApplicationRepository) Reorder(ctx context.Context, orderedIDs []shared.ID) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `UPDATE applications SET display_order = $2, updated_at = $3 WHERE id = $1`
		now := time.Now().UTC()
		for i, id := range orderedIDs {
			if _, err := tx.ExecContext(ctx, query, id.String(), i, now); err != nil {
				return fmt.Errorf("failed to reorder application %s: %w", id, err)
			}
		}
		return nil
	})
}

func (r *ApplicationRepository) buildListQuery(filter application.ListFilter, countOnly bool) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
		argIndex   = 1
	)

	if filter.Tier != nil {
		conditions = append(conditions, fmt.Sprintf("tier = $%d", argIndex))
		args = append(args, filter.Tier.String())
		argIndex++
	}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	if filter.IsPublic != nil {
		conditions = append(conditions, fmt.Sprintf("is_public = $%d", argIndex))
		args = append(args, *filter.IsPublic)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, wrapLikePattern(filter.Search))
		argIndex++
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	if countOnly {
		return fmt.Sprintf("SELECT COUNT(*) FROM applications WHERE %s", whereClause), args
	}

	// Tier first so primary applications lead ('primary' sorts before
	// 'secondary'), then explicit ordering, name as the tie breaker.
	query := fmt.Sprintf(`
		SELECT `+applicationColumns+`
		FROM applications
		WHERE %s
		ORDER BY tier %s, display_order %s, name %s
		LIMIT $%d OFFSET $%d
	`, whereClause, sortOrderASC, sortOrderASC, sortOrderASC, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	return query, args
}

func scanApplicationFields(s rowScanner) (*application.Application, error) {
	var (
		idStr, name, description, appURL, tierStr string
		icon, color                               sql.NullString
		isPublic, isActive                        bool
		displayOrder                              int
		createdAt, updatedAt                      time.Time
	)

	err := s.Scan(
		&idStr, &name, &description, &icon, &color, &appURL,
		&tierStr, &isPublic, &isActive, &displayOrder, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid application ID %q: %w", idStr, err)
	}

	return application.Reconstitute(
		id,
		name,
		description,
		nullStringValue(icon),
		nullStringValue(color),
		appURL,
		application.Tier(tierStr),
		isPublic,
		isActive,
		displayOrder,
		createdAt,
		updatedAt,
	), nil
}

func (r *ApplicationRepository) scanApplication(row *sql.Row) (*application.Application, error) {
	a, err := scanApplicationFields(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, application.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return a, nil
}

func (r *ApplicationRepository) scanApplicationRow(rows *sql.Rows) (*application.Application, error) {
	a, err := scanApplicationFields(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return a, nil
}

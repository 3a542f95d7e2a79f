package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apphubio/api/pkg/domain/group"
	"github.com/apphubio/api/pkg/domain/permission"
	"github.com/apphubio/api/pkg/domain/shared"
)

// GroupRepository implements group.Repository using PostgreSQL.
type GroupRepository struct {
	db *DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = `id, name, description, color, created_at, updated_at`

// Create persists a new group.
func (r *GroupRepository) Create(ctx context.Context, g *group.Group) error {
	query := `
		INSERT INTO groups (` + groupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		g.ID().String(),
		g.Name(),
		g.Description(),
		nullString(g.Color()),
		g.CreatedAt(),
		g.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return group.ErrNameExists
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// GetByID retrieves a group by ID.
func (r *GroupRepository) GetByID(ctx context.Context, id shared.ID) (*group.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	return r.scanGroup(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByName retrieves a group by its unique name.
func (r *GroupRepository) GetByName(ctx context.Context, name string) (*group.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE name = $1`

	return r.scanGroup(r.db.QueryRowContext(ctx, query, name))
}

// Update updates an existing group.
func (r *GroupRepository) Update(ctx context.Context, g *group.Group) error {
	query := `
		UPDATE groups
		SET name = $2, description = $3, color = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		g.ID().String(),
		g.Name(),
		g.Description(),
		nullString(g.Color()),
		g.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return group.ErrNameExists
		}
		return fmt.Errorf("failed to update group: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return group.ErrGroupNotFound
	}

	return nil
}

// Delete removes a group. Memberships and group grants cascade.
func (r *GroupRepository) Delete(ctx context.Context, id shared.ID) error {
	query := `DELETE FROM groups WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return group.ErrGroupNotFound
	}

	return nil
}

// List lists groups with filtering.
func (r *GroupRepository) List(ctx context.Context, filter group.ListFilter) ([]*group.Group, error) {
	query, args := r.buildListQuery(filter, false)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*group.Group
	for rows.Next() {
		g, err := r.scanGroupRow(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// Count counts groups with filtering.
func (r *GroupRepository) Count(ctx context.Context, filter group.ListFilter) (int64, error) {
	query, args := r.buildListQuery(filter, true)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}

	return count, nil
}

// ExistsByName checks if a group with the given name exists.
func (r *GroupRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM groups WHERE name = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check name existence: %w", err)
	}

	return exists, nil
}

// AddMember adds a member to a group. Adding an existing member is a no-op.
func (r *GroupRepository) AddMember(ctx context.Context, m *group.Member) error {
	query := `
		INSERT INTO group_members (group_id, user_id, added_by, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		m.GroupID().String(),
		m.UserID().String(),
		nullID(m.AddedBy()),
		m.AddedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// RemoveMember removes a member from a group. Removing a non-member is a no-op.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID shared.ID) error {
	query := `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`

	_, err := r.db.ExecContext(ctx, query, groupID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// IsMember checks if a user is a member of a group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID shared.ID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, groupID.String(), userID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return exists, nil
}

// ListMembers lists members of a group with profile details.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID shared.ID) ([]*group.MemberWithProfile, error) {
	query := `
		SELECT
			gm.group_id, gm.user_id, gm.added_by, gm.added_at,
			p.email, p.full_name
		FROM group_members gm
		INNER JOIN profiles p ON p.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.added_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*group.MemberWithProfile
	for rows.Next() {
		var (
			groupIDStr, userIDStr string
			addedBy               sql.NullString
			addedAt               time.Time
			email, fullName       string
		)

		if err := rows.Scan(&groupIDStr, &userIDStr, &addedBy, &addedAt, &email, &fullName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}

		gID, err := shared.IDFromString(groupIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid group ID %q: %w", groupIDStr, err)
		}
		uID, err := shared.IDFromString(userIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q: %w", userIDStr, err)
		}

		member := group.ReconstituteMember(gID, uID, parseNullID(addedBy), addedAt)
		members = append(members, &group.MemberWithProfile{
			Member:   member,
			Email:    email,
			FullName: fullName,
		})
	}

	return members, rows.Err()
}

// CountMembers counts members in a group.
func (r *GroupRepository) CountMembers(ctx context.Context, groupID shared.ID) (int64, error) {
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = $1`

	var count int64
	err := r.db.QueryRowContext(ctx, query, groupID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}

// ListGroupIDsByUser returns the IDs of every group the user belongs to.
func (r *GroupRepository) ListGroupIDsByUser(ctx context.Context, userID shared.ID) ([]shared.ID, error) {
	query := `SELECT group_id FROM group_members WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list group IDs by user: %w", err)
	}
	defer rows.Close()

	var ids []shared.ID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("failed to scan group ID: %w", err)
		}
		id, err := shared.IDFromString(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid group ID %q: %w", idStr, err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// UpsertGrant creates or replaces the grant for (group, application).
func (r *GroupRepository) UpsertGrant(ctx context.Context, g *group.Grant) error {
	query := `
		INSERT INTO group_permissions (group_id, application_id, access_level, granted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_id, application_id)
		DO UPDATE SET access_level = EXCLUDED.access_level,
			granted_by = EXCLUDED.granted_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		g.GroupID().String(),
		g.ApplicationID().String(),
		g.Level().String(),
		nullID(g.GrantedBy()),
		g.CreatedAt(),
		g.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group grant: %w", err)
	}

	return nil
}

// RemoveGrant removes the grant for (group, application). Removing an absent
// grant is a no-op.
func (r *GroupRepository) RemoveGrant(ctx context.Context, groupID, applicationID shared.ID) error {
	query := `DELETE FROM group_permissions WHERE group_id = $1 AND application_id = $2`

	_, err := r.db.ExecContext(ctx, query, groupID.String(), applicationID.String())
	if err != nil {
		return fmt.Errorf("failed to remove group grant: %w", err)
	}

	return nil
}

// ListGrants lists all grants for a group.
func (r *GroupRepository) ListGrants(ctx context.Context, groupID shared.ID) ([]*group.Grant, error) {
	query := groupGrantSelect + ` WHERE group_id = $1`

	return r.queryGrants(ctx, query, groupID.String())
}

// ListGrantsByApplication lists all group grants for an application.
func (r *GroupRepository) ListGrantsByApplication(ctx context.Context, applicationID shared.ID) ([]*group.Grant, error) {
	query := groupGrantSelect + ` WHERE application_id = $1`

	return r.queryGrants(ctx, query, applicationID.String())
}

// ListAllGrants lists every group grant.
func (r *GroupRepository) ListAllGrants(ctx context.Context) ([]*group.Grant, error) {
	return r.queryGrants(ctx, groupGrantSelect)
}

const groupGrantSelect = `
	SELECT group_id, application_id, access_level, granted_by, created_at, updated_at
	FROM group_permissions`

func (r *GroupRepository) queryGrants(ctx context.Context, query string, args ...any) ([]*group.Grant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list group grants: %w", err)
	}
	defer rows.Close()

	var grants []*group.Grant
	for rows.Next() {
		var (
			groupIDStr, appIDStr, levelStr string
			grantedBy                      sql.NullString
			createdAt, updatedAt           time.Time
		)

		if err := rows.Scan(&groupIDStr, &appIDStr, &levelStr, &grantedBy, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group grant: %w", err)
		}

		groupID, err := shared.IDFromString(groupIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid group ID %q: %w", groupIDStr, err)
		}
		appID, err := shared.IDFromString(appIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid application ID %q: %w", appIDStr, err)
		}

		grants = append(grants, group.ReconstituteGrant(
			groupID,
			appID,
			permission.AccessLevel(levelStr),
			parseNullID(grantedBy),
			createdAt,
			updatedAt,
		))
	}

	return grants, rows.Err()
}

func (r *GroupRepository) buildListQuery(filter group.ListFilter, countOnly bool) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
		argIndex   = 1
	)

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
		return fmt.Sprintf("SELECT COUNT(*) FROM groups WHERE %s", whereClause), args
	}

	query := fmt.Sprintf(`
		SELECT `+groupColumns+`
		FROM groups
		WHERE %s
		ORDER BY name %s
		LIMIT $%d OFFSET $%d
	`, whereClause, sortOrderASC, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	return query, args
}

func scanGroupFields(s rowScanner) (*group.Group, error) {
	var (
		idStr, name, description string
		color                    sql.NullString
		createdAt, updatedAt     time.Time
	)

	err := s.Scan(&idStr, &name, &description, &color, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid group ID %q: %w", idStr, err)
	}

	return group.Reconstitute(id, name, description, nullStringValue(color), createdAt, updatedAt), nil
}

func (r *GroupRepository) scanGroup(row *sql.Row) (*group.Group, error) {
	g, err := scanGroupFields(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, group.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return g, nil
}

func (r *GroupRepository) scanGroupRow(rows *sql.Rows) (*group.Group, error) {
	g, err := scanGroupFields(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}
	return g, nil
}

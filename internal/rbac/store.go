package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dhawalhost/permitkit/pkg/policy"
	"github.com/jmoiron/sqlx"
)

// grantRow is one (role, grant) pair of a subject. Roles without grants appear
// once with null grant columns.
type grantRow struct {
	RoleID   string         `db:"role_id"`
	RoleName string         `db:"role_name"`
	Resource sql.NullString `db:"resource"`
	Action   sql.NullString `db:"action"`
	Policy   sql.NullString `db:"policy"`
}

// Store loads subjects and their role grants from Postgres. It is read-only:
// role administration belongs to the identity platform that owns these tables.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new RBAC store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSubject implements policy.SubjectSource.
func (s *Store) GetSubject(ctx context.Context, id string) (*policy.Subject, error) {
	var subjectID string
	err := s.db.GetContext(ctx, &subjectID, `SELECT id FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", policy.ErrSubjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}

	var rows []grantRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT r.id AS role_id, r.name AS role_name, p.resource, p.action, p.policy
		 FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 LEFT JOIN role_permissions rp ON rp.role_id = r.id
		 LEFT JOIN permissions p ON p.id = rp.permission_id
		 WHERE ur.user_id = $1
		 ORDER BY r.name, r.id, p.resource, p.action, p.policy`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load subject grants: %w", err)
	}

	return &policy.Subject{ID: subjectID, Roles: groupRoles(rows)}, nil
}

// groupRoles folds ordered rows into roles, preserving row order.
func groupRoles(rows []grantRow) []policy.Role {
	var roles []policy.Role
	index := make(map[string]int)
	for _, row := range rows {
		i, seen := index[row.RoleID]
		if !seen {
			i = len(roles)
			index[row.RoleID] = i
			roles = append(roles, policy.Role{Name: row.RoleName})
		}
		if !row.Resource.Valid || !row.Action.Valid || !row.Policy.Valid {
			continue
		}
		roles[i].Grants = append(roles[i].Grants, policy.Grant{
			Resource: row.Resource.String,
			Action:   row.Action.String,
			Policy:   policy.Name(row.Policy.String),
		})
	}
	return roles
}

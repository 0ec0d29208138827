// Package session implements the Session Manager: a SQLite-backed
// persistence layer over groups, group members, and messages. It is pure
// data plumbing — it holds no orchestration state and makes no decisions
// about who replies to what.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	created_at DATETIME NOT NULL,
	config TEXT DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS group_members (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'agent',
	agent_id TEXT,
	display_name TEXT DEFAULT '',
	joined_at DATETIME NOT NULL,
	role_in_group TEXT,
	FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL,
	turn_id TEXT DEFAULT '',
	author_id TEXT NOT NULL,
	author_type TEXT NOT NULL DEFAULT 'human',
	author_name TEXT DEFAULT '',
	content TEXT DEFAULT '',
	mentions TEXT DEFAULT '[]',
	attachments TEXT DEFAULT '[]',
	timestamp DATETIME NOT NULL,
	metadata TEXT DEFAULT '{}',
	FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_group_id ON messages(group_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
`

// Manager is the SQLite-backed Session Manager.
type Manager struct {
	db *sqlx.DB
}

// NewManager opens (creating if necessary) the SQLite database at dsn and
// initializes its schema. SQLite only supports a single writer, so the
// connection pool is constrained to one open connection (§4.5).
func NewManager(dsn string) (*Manager, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.Persistence("opening session database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	m := &Manager{db: db}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) initSchema() error {
	if _, err := m.db.Exec(schema); err != nil {
		return apperrors.Persistence("initializing session database schema", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	return m.db.Close()
}

type groupRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	Config      string    `db:"config"`
}

// CreateGroup persists a new group, generating an id and defaulting config
// to model.DefaultGroupConfig if cfg is the zero value.
func (m *Manager) CreateGroup(ctx context.Context, name, description string, cfg model.GroupConfig) (model.Group, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	if cfg == (model.GroupConfig{}) {
		cfg = model.DefaultGroupConfig()
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return model.Group{}, apperrors.Persistence("marshaling group config", err)
	}

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, created_at, config) VALUES (?, ?, ?, ?, ?)`,
		id, name, description, now, string(cfgJSON),
	)
	if err != nil {
		return model.Group{}, apperrors.Persistence("inserting group", err)
	}

	return model.Group{ID: id, Name: name, Description: description, CreatedAt: now, Config: cfg}, nil
}

// GetGroup fetches a group by id, along with its members, or a ProtocolError
// if the group does not exist (§7: "missing group" is a ProtocolError).
func (m *Manager) GetGroup(ctx context.Context, groupID string) (model.Group, error) {
	var row groupRow
	err := m.db.GetContext(ctx, &row, `SELECT * FROM groups WHERE id = ?`, groupID)
	if err == sql.ErrNoRows {
		return model.Group{}, apperrors.Protocol(fmt.Sprintf("group not found: %s", groupID))
	}
	if err != nil {
		return model.Group{}, apperrors.Persistence("querying group", err)
	}

	members, err := m.ListGroupMembers(ctx, groupID)
	if err != nil {
		return model.Group{}, err
	}

	var cfg model.GroupConfig
	if err := json.Unmarshal([]byte(row.Config), &cfg); err != nil {
		return model.Group{}, apperrors.Parse("parsing group config", err)
	}

	return model.Group{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
		Members:     members,
		Config:      cfg,
	}, nil
}

// ListGroups returns every group, newest first, each with its member list.
func (m *Manager) ListGroups(ctx context.Context) ([]model.Group, error) {
	var rows []groupRow
	if err := m.db.SelectContext(ctx, &rows, `SELECT * FROM groups ORDER BY created_at DESC`); err != nil {
		return nil, apperrors.Persistence("listing groups", err)
	}

	groups := make([]model.Group, 0, len(rows))
	for _, row := range rows {
		members, err := m.ListGroupMembers(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		var cfg model.GroupConfig
		if err := json.Unmarshal([]byte(row.Config), &cfg); err != nil {
			return nil, apperrors.Parse("parsing group config", err)
		}
		groups = append(groups, model.Group{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
			Members:     members,
			Config:      cfg,
		})
	}
	return groups, nil
}

// DeleteGroup removes a group; foreign-key cascade removes its members and
// messages along with it.
func (m *Manager) DeleteGroup(ctx context.Context, groupID string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, groupID); err != nil {
		return apperrors.Persistence("deleting group", err)
	}
	return nil
}

type memberRow struct {
	ID          string    `db:"id"`
	GroupID     string    `db:"group_id"`
	Type        string    `db:"type"`
	AgentID     sql.NullString `db:"agent_id"`
	DisplayName string    `db:"display_name"`
	JoinedAt    time.Time `db:"joined_at"`
	RoleInGroup sql.NullString `db:"role_in_group"`
}

func (r memberRow) toModel() model.GroupMember {
	return model.GroupMember{
		ID:          r.ID,
		Type:        model.MemberType(r.Type),
		AgentID:     r.AgentID.String,
		DisplayName: r.DisplayName,
		JoinedAt:    r.JoinedAt,
		RoleInGroup: r.RoleInGroup.String,
	}
}

// AddMember adds a member (human or agent) to a group.
func (m *Manager) AddMember(ctx context.Context, groupID string, memberType model.MemberType, agentID, displayName, roleInGroup string) (model.GroupMember, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := m.db.ExecContext(ctx,
		`INSERT INTO group_members (id, group_id, type, agent_id, display_name, joined_at, role_in_group) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, groupID, string(memberType), nullable(agentID), displayName, now, nullable(roleInGroup),
	)
	if err != nil {
		return model.GroupMember{}, apperrors.Persistence("inserting group member", err)
	}

	return model.GroupMember{
		ID: id, Type: memberType, AgentID: agentID, DisplayName: displayName,
		JoinedAt: now, RoleInGroup: roleInGroup,
	}, nil
}

// RemoveMember removes a member from a group; messages are untouched.
func (m *Manager) RemoveMember(ctx context.Context, groupID, memberID string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM group_members WHERE id = ? AND group_id = ?`, memberID, groupID); err != nil {
		return apperrors.Persistence("removing group member", err)
	}
	return nil
}

// ListGroupMembers returns a group's members in join order.
func (m *Manager) ListGroupMembers(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	var rows []memberRow
	if err := m.db.SelectContext(ctx, &rows, `SELECT * FROM group_members WHERE group_id = ? ORDER BY joined_at`, groupID); err != nil {
		return nil, apperrors.Persistence("listing group members", err)
	}
	members := make([]model.GroupMember, len(rows))
	for i, r := range rows {
		members[i] = r.toModel()
	}
	return members, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agentarena/arena/internal/apperrors"
	"github.com/agentarena/arena/internal/model"
)

type messageRow struct {
	ID          string    `db:"id"`
	GroupID     string    `db:"group_id"`
	TurnID      string    `db:"turn_id"`
	AuthorID    string    `db:"author_id"`
	AuthorType  string    `db:"author_type"`
	AuthorName  string    `db:"author_name"`
	Content     string    `db:"content"`
	Mentions    string    `db:"mentions"`
	Attachments string    `db:"attachments"`
	Timestamp   time.Time `db:"timestamp"`
	Metadata    string    `db:"metadata"`
}

func (r messageRow) toModel() (model.StoredMessage, error) {
	var mentions []string
	if err := json.Unmarshal([]byte(r.Mentions), &mentions); err != nil {
		return model.StoredMessage{}, apperrors.Parse("parsing stored mentions", err)
	}
	var attachments []model.Attachment
	if err := json.Unmarshal([]byte(r.Attachments), &attachments); err != nil {
		return model.StoredMessage{}, apperrors.Parse("parsing stored attachments", err)
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(r.Metadata), &metadata); err != nil {
		return model.StoredMessage{}, apperrors.Parse("parsing stored metadata", err)
	}
	return model.StoredMessage{
		ID: r.ID, GroupID: r.GroupID, TurnID: r.TurnID,
		AuthorID: r.AuthorID, AuthorType: model.AuthorType(r.AuthorType), AuthorName: r.AuthorName,
		Content: r.Content, Mentions: mentions, Attachments: attachments,
		Timestamp: r.Timestamp, Metadata: metadata,
	}, nil
}

// SaveMessage persists a Stored Message, assigning id and timestamp.
func (m *Manager) SaveMessage(ctx context.Context, msg model.StoredMessage) (model.StoredMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Timestamp = time.Now().UTC()
	if msg.Mentions == nil {
		msg.Mentions = []string{}
	}
	if msg.Attachments == nil {
		msg.Attachments = []model.Attachment{}
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]interface{}{}
	}

	mentionsJSON, err := json.Marshal(msg.Mentions)
	if err != nil {
		return model.StoredMessage{}, apperrors.Persistence("marshaling mentions", err)
	}
	attachmentsJSON, err := json.Marshal(msg.Attachments)
	if err != nil {
		return model.StoredMessage{}, apperrors.Persistence("marshaling attachments", err)
	}
	metadataJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return model.StoredMessage{}, apperrors.Persistence("marshaling metadata", err)
	}

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO messages (id, group_id, turn_id, author_id, author_type, author_name, content, mentions, attachments, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.GroupID, msg.TurnID, msg.AuthorID, string(msg.AuthorType), msg.AuthorName,
		msg.Content, string(mentionsJSON), string(attachmentsJSON), msg.Timestamp, string(metadataJSON),
	)
	if err != nil {
		return model.StoredMessage{}, apperrors.Persistence("inserting message", err)
	}
	return msg, nil
}

// GetMessages returns up to limit messages older than before (or the newest
// limit if before is empty), then reverses to chronological order — the
// only place the order is flipped (§4.5).
func (m *Manager) GetMessages(ctx context.Context, groupID string, limit int, before *time.Time) ([]model.StoredMessage, error) {
	var rows []messageRow
	var err error
	if before != nil {
		err = m.db.SelectContext(ctx, &rows,
			`SELECT * FROM messages WHERE group_id = ? AND timestamp < ? ORDER BY timestamp DESC LIMIT ?`,
			groupID, *before, limit)
	} else {
		err = m.db.SelectContext(ctx, &rows,
			`SELECT * FROM messages WHERE group_id = ? ORDER BY timestamp DESC LIMIT ?`,
			groupID, limit)
	}
	if err != nil {
		return nil, apperrors.Persistence("querying messages", err)
	}

	messages := make([]model.StoredMessage, len(rows))
	for i, r := range rows {
		msg, err := r.toModel()
		if err != nil {
			return nil, err
		}
		messages[i] = msg
	}

	// rows are newest-first; reverse to chronological order before returning.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// StoredToProtocol converts a Stored Message to the Context Builder's
// Message form, mapping author_type: human->user, system->system, otherwise->assistant.
func StoredToProtocol(stored model.StoredMessage) model.Message {
	role := model.RoleAssistant
	switch stored.AuthorType {
	case model.AuthorHuman:
		role = model.RoleUser
	case model.AuthorSystem:
		role = model.RoleSystem
	}
	return model.Message{
		ID:         stored.ID,
		Role:       role,
		AuthorID:   stored.AuthorID,
		AuthorName: stored.AuthorName,
		Content:    stored.Content,
		Timestamp:  stored.Timestamp,
	}
}

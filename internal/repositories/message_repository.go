package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

const foreignKeyViolation = "23503"

// MessageRepository abstracts the append-only message log. Messages are
// never updated or individually deleted; DeleteGroupMessages exists only for
// the group cascade.
type MessageRepository interface {
	CreateMessage(ctx context.Context, id, groupID string, sender models.Identity, body string, attachment *models.AttachmentRef, attachmentKey string) (models.ChatMessage, error)
	ListGroupMessages(ctx context.Context, groupID string) ([]models.ChatMessage, error)
	ListAttachmentKeys(ctx context.Context, groupID string) ([]string, error)
	DeleteGroupMessages(ctx context.Context, groupID string) error
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

type messageRow struct {
	models.ChatMessage
	AttachmentURL  sql.NullString `db:"attachment_url"`
	AttachmentName sql.NullString `db:"attachment_name"`
	AttachmentMime sql.NullString `db:"attachment_mime"`
}

func (row messageRow) toModel() models.ChatMessage {
	msg := row.ChatMessage
	if row.AttachmentURL.Valid {
		msg.Attachment = &models.AttachmentRef{
			URL:      row.AttachmentURL.String,
			FileName: row.AttachmentName.String,
			MimeType: row.AttachmentMime.String,
		}
	}
	return msg
}

// CreateMessage appends a message; the store assigns created_at and seq.
// The sender's display name and role are snapshotted into the row.
func (r *MessageRepo) CreateMessage(ctx context.Context, id, groupID string, sender models.Identity, body string, attachment *models.AttachmentRef, attachmentKey string) (models.ChatMessage, error) {
	var attURL, attName, attMime, attKey sql.NullString
	if attachment != nil {
		attURL = sql.NullString{String: attachment.URL, Valid: true}
		attName = sql.NullString{String: attachment.FileName, Valid: true}
		attMime = sql.NullString{String: attachment.MimeType, Valid: true}
		attKey = sql.NullString{String: attachmentKey, Valid: attachmentKey != ""}
	}

	var row messageRow
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_messages (id, group_id, sender_id, sender_name, sender_role, body, attachment_url, attachment_name, attachment_mime, attachment_key)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         RETURNING id, group_id, sender_id, sender_name, sender_role, body, attachment_url, attachment_name, attachment_mime, created_at, seq`,
		id, groupID, sender.ID, sender.DisplayName, sender.Role, body, attURL, attName, attMime, attKey).
		StructScan(&row)
	if err != nil {
		// the group may have been deleted out from under the send
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return models.ChatMessage{}, apperrors.ErrGroupNotFound
		}
		return models.ChatMessage{}, fmt.Errorf("%w: create message: %v", apperrors.ErrStoreUnavailable, err)
	}
	return row.toModel(), nil
}

// ListGroupMessages returns the group's log ordered by (created_at, seq).
func (r *MessageRepo) ListGroupMessages(ctx context.Context, groupID string) ([]models.ChatMessage, error) {
	rows := []messageRow{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, group_id, sender_id, sender_name, sender_role, body, attachment_url, attachment_name, attachment_mime, created_at, seq
         FROM chat_messages WHERE group_id=$1 ORDER BY created_at ASC, seq ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", apperrors.ErrStoreUnavailable, err)
	}
	msgs := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toModel())
	}
	return msgs, nil
}

// ListAttachmentKeys returns blob keys referenced by the group's messages,
// collected before a cascade so the blobs can be cleaned up afterwards.
func (r *MessageRepo) ListAttachmentKeys(ctx context.Context, groupID string) ([]string, error) {
	keys := []string{}
	err := r.db.SelectContext(ctx, &keys,
		`SELECT attachment_key FROM chat_messages WHERE group_id=$1 AND attachment_key IS NOT NULL`, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: list attachment keys: %v", apperrors.ErrStoreUnavailable, err)
	}
	return keys, nil
}

// DeleteGroupMessages removes all messages of a group (cascade step one).
func (r *MessageRepo) DeleteGroupMessages(ctx context.Context, groupID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE group_id=$1`, groupID); err != nil {
		return fmt.Errorf("%w: delete messages: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

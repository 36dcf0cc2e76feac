package models

import "time"

// AttachmentRef points at an uploaded blob embedded in a message.
type AttachmentRef struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// ChatMessage is one immutable entry in a group's append-only log. The
// sender's name and role are snapshotted at send time. CreatedAt is assigned
// by the record store's clock and Seq is a monotonic insertion counter used
// to break timestamp ties, so (CreatedAt, Seq) totally orders a group's log.
type ChatMessage struct {
	ID         string         `db:"id" json:"id"`
	GroupID    string         `db:"group_id" json:"group_id"`
	SenderID   string         `db:"sender_id" json:"sender_id"`
	SenderName string         `db:"sender_name" json:"sender_name"`
	SenderRole Role           `db:"sender_role" json:"sender_role"`
	Body       string         `db:"body" json:"body"`
	Attachment *AttachmentRef `db:"-" json:"attachment,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	Seq        int64          `db:"seq" json:"seq"`
}

// Before reports whether m precedes other in the group's total order.
func (m ChatMessage) Before(other ChatMessage) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.Seq < other.Seq
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

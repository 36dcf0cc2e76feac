package models

import "time"

// ChatGroup is a course-scoped conversation channel owned by exactly one
// lecturer. Immutable after creation except for deletion.
type ChatGroup struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

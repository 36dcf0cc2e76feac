package models

// Role of an identity within the campus.
type Role string

const (
	RoleLecturer Role = "lecturer"
	RoleStudent  Role = "student"
)

// Identity describes the active session's user as supplied by the identity
// provider. Read-only input, never mutated by this service.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// EnrollmentRecord links a student to a course. This service only reads
// enrollments; they are maintained elsewhere.
type EnrollmentRecord struct {
	StudentID string `db:"student_id" json:"student_id"`
	CourseID  string `db:"course_id" json:"course_id"`
}

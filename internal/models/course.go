package models

import "time"

// Course is a subject taught by one teacher to one grade.
type Course struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"courseId"`
	TeacherID string    `db:"teacher_id" json:"teacherId"`
	Grade     string    `db:"grade" json:"grade"`
	Subject   string    `db:"subject" json:"subject"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	Search    string
	TeacherID string
	Grade     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// Class is one billable session: one student attending one course on a date.
// The teacher is not stored; it is derived through the course.
type Class struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"courseId"`
	StudentID string    `db:"student_id" json:"studentId"`
	Date      Date      `db:"class_date" json:"date"`
	Price     float64   `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ClassFilter captures filtering options for listing classes. Month uses the
// YYYY-MM form and is translated into the From/To date range.
type ClassFilter struct {
	StudentID string
	CourseID  string
	Month     string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

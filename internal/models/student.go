package models

import "time"

// Student is a learner enrolled at the center. StudentID is the human-assigned
// key other records refer to; it is not guaranteed unique.
type Student struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"studentId"`
	NameZh    string    `db:"name_zh" json:"nameZh"`
	NameEn    string    `db:"name_en" json:"nameEn"`
	Grade     string    `db:"grade" json:"grade"`
	Nickname  string    `db:"nickname" json:"nickname"`
	Phone     string    `db:"phone" json:"phone"`
	Wechat    string    `db:"wechat" json:"wechat"`
	School    string    `db:"school" json:"school"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayName prefers the Chinese name and falls back to the English one.
func (s Student) DisplayName() string {
	if s.NameZh != "" {
		return s.NameZh
	}
	return s.NameEn
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Grade     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

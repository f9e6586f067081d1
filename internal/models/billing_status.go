package models

import "time"

// Default status labels shown when no status row exists for a month.
const (
	PaymentStatusUnpaid    = "未繳交"
	PaymentStatusPaid      = "已繳交"
	StatementStatusPending = "未生成"
	StatementStatusCreated = "已生成"
	PaymentMethodNone      = "N/A"
)

// StudentBillingStatus tracks whether a student settled a month's tuition.
type StudentBillingStatus struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"studentId"`
	Month           string    `db:"month" json:"month"`
	PaymentStatus   string    `db:"payment_status" json:"paymentStatus"`
	PaymentMethod   string    `db:"payment_method" json:"paymentMethod"`
	StatementStatus string    `db:"statement_status" json:"statementStatus"`
	Notes           string    `db:"notes" json:"notes"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// TeacherBillingStatus tracks verification and payout of a teacher's month.
type TeacherBillingStatus struct {
	ID         string    `db:"id" json:"id"`
	TeacherID  string    `db:"teacher_id" json:"teacherId"`
	Month      string    `db:"month" json:"month"`
	IsVerified bool      `db:"is_verified" json:"isVerified"`
	IsPaid     bool      `db:"is_paid" json:"isPaid"`
	Notes      string    `db:"notes" json:"notes"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// StudentStatusPatch carries the fields of a student status upsert. Nil
// pointers leave the stored value untouched.
type StudentStatusPatch struct {
	StudentID       string  `json:"studentId" validate:"required"`
	Month           string  `json:"month" validate:"required"`
	PaymentStatus   *string `json:"paymentStatus"`
	PaymentMethod   *string `json:"paymentMethod"`
	StatementStatus *string `json:"statementStatus"`
	Notes           *string `json:"notes"`
}

// TeacherStatusPatch carries the fields of a teacher status upsert.
type TeacherStatusPatch struct {
	TeacherID  string  `json:"teacherId" validate:"required"`
	Month      string  `json:"month" validate:"required"`
	IsVerified *bool   `json:"isVerified"`
	IsPaid     *bool   `json:"isPaid"`
	Notes      *string `json:"notes"`
}

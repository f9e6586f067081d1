package billing

import (
	"math"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// StudentRow is one student's billing line for a month.
type StudentRow struct {
	StudentID       string  `json:"studentId"`
	StudentName     string  `json:"studentName"`
	Grade           string  `json:"grade"`
	Resolved        bool    `json:"resolved"`
	ClassCount      int     `json:"classCount"`
	TotalAmount     float64 `json:"totalAmount"`
	PaymentStatus   string  `json:"paymentStatus"`
	PaymentMethod   string  `json:"paymentMethod"`
	StatementStatus string  `json:"statementStatus"`
	Notes           string  `json:"notes"`
}

// TeacherRow is one teacher's payout line for a month.
type TeacherRow struct {
	TeacherID   string  `json:"teacherId"`
	TeacherName string  `json:"teacherName"`
	Resolved    bool    `json:"resolved"`
	ClassCount  int     `json:"classCount"`
	TotalAmount float64 `json:"totalAmount"`
	IsVerified  bool    `json:"isVerified"`
	IsPaid      bool    `json:"isPaid"`
	Notes       string  `json:"notes"`
}

// Price returns a class price usable in sums. NaN and infinities count as 0.
func Price(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// AggregateByStudent groups the month's classes by student key. Rows come out
// in order of first appearance and carry the stored status or the defaults.
func AggregateByStudent(classes []models.Class, month Month, lookup *Lookup, statuses []models.StudentBillingStatus) []StudentRow {
	byKey := latestStudentStatuses(statuses, month)
	index := make(map[string]int)
	rows := make([]StudentRow, 0)

	for _, class := range FilterMonth(classes, month) {
		key := class.StudentID
		pos, ok := index[key]
		if !ok {
			row := StudentRow{
				StudentID:       key,
				PaymentStatus:   models.PaymentStatusUnpaid,
				PaymentMethod:   models.PaymentMethodNone,
				StatementStatus: models.StatementStatusPending,
			}
			if student, found := lookup.Student(key).Get(); found {
				row.StudentName = student.DisplayName()
				row.Grade = student.Grade
				row.Resolved = true
			}
			if status, found := byKey[key]; found {
				applyStudentStatus(&row, status)
			}
			pos = len(rows)
			index[key] = pos
			rows = append(rows, row)
		}
		rows[pos].ClassCount++
		rows[pos].TotalAmount += Price(class.Price)
	}
	return rows
}

// UnassignedTeacherKey is the group key for classes whose course is missing or
// names no teacher. Status rows never apply to it.
const UnassignedTeacherKey = ""

// AggregateByTeacher groups the month's classes by the teacher reached through
// each class's course. Unresolvable teachers group under their raw key, and
// classes with no teacher key at all group under UnassignedTeacherKey.
func AggregateByTeacher(classes []models.Class, month Month, lookup *Lookup, statuses []models.TeacherBillingStatus) []TeacherRow {
	byKey := latestTeacherStatuses(statuses, month)
	index := make(map[string]int)
	rows := make([]TeacherRow, 0)

	for _, joined := range lookup.Join(FilterMonth(classes, month)) {
		key := joined.Teacher.RawID()
		pos, ok := index[key]
		if !ok {
			row := TeacherRow{TeacherID: key}
			if teacher, found := joined.Teacher.Get(); found {
				row.TeacherName = teacher.Name
				row.Resolved = true
			}
			if status, found := byKey[key]; found && key != UnassignedTeacherKey {
				row.IsVerified = status.IsVerified
				row.IsPaid = status.IsPaid
				row.Notes = status.Notes
			}
			pos = len(rows)
			index[key] = pos
			rows = append(rows, row)
		}
		rows[pos].ClassCount++
		rows[pos].TotalAmount += Price(joined.Class.Price)
	}
	return rows
}

// SumStudentRows totals the amounts of student rows.
func SumStudentRows(rows []StudentRow) float64 {
	var total float64
	for _, row := range rows {
		total += row.TotalAmount
	}
	return total
}

// SumTeacherRows totals the amounts of teacher rows.
func SumTeacherRows(rows []TeacherRow) float64 {
	var total float64
	for _, row := range rows {
		total += row.TotalAmount
	}
	return total
}

func applyStudentStatus(row *StudentRow, status models.StudentBillingStatus) {
	if status.PaymentStatus != "" {
		row.PaymentStatus = status.PaymentStatus
	}
	if status.PaymentMethod != "" {
		row.PaymentMethod = status.PaymentMethod
	}
	if status.StatementStatus != "" {
		row.StatementStatus = status.StatementStatus
	}
	row.Notes = status.Notes
}

// Legacy data may hold several rows per key and month; the most recently
// updated one wins.
func latestStudentStatuses(statuses []models.StudentBillingStatus, month Month) map[string]models.StudentBillingStatus {
	out := make(map[string]models.StudentBillingStatus, len(statuses))
	want := month.String()
	for _, status := range statuses {
		if status.Month != want {
			continue
		}
		if current, ok := out[status.StudentID]; ok && current.UpdatedAt.After(status.UpdatedAt) {
			continue
		}
		out[status.StudentID] = status
	}
	return out
}

func latestTeacherStatuses(statuses []models.TeacherBillingStatus, month Month) map[string]models.TeacherBillingStatus {
	out := make(map[string]models.TeacherBillingStatus, len(statuses))
	want := month.String()
	for _, status := range statuses {
		if status.Month != want {
			continue
		}
		if current, ok := out[status.TeacherID]; ok && current.UpdatedAt.After(status.UpdatedAt) {
			continue
		}
		out[status.TeacherID] = status
	}
	return out
}

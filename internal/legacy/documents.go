// Package legacy moves records out of the retired MongoDB store. Documents are
// read as loosely typed BSON, written to a JSON dump and loaded into Postgres.
package legacy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// Collection names in the legacy database.
const (
	CollectionStudents        = "students"
	CollectionTeachers        = "teachers"
	CollectionCourses         = "courses"
	CollectionClasses         = "classes"
	CollectionStudentStatuses = "studentbillingstatuses"
	CollectionTeacherStatuses = "teacherbillingstatuses"
	CollectionUsers           = "users"
)

// Collections lists every collection a dump carries, in load order.
var Collections = []string{
	CollectionStudents,
	CollectionTeachers,
	CollectionCourses,
	CollectionClasses,
	CollectionStudentStatuses,
	CollectionTeacherStatuses,
	CollectionUsers,
}

// Student mirrors a legacy student document.
type Student struct {
	StudentID string `bson:"studentId" json:"studentId"`
	NameZh    string `bson:"nameZh" json:"nameZh"`
	NameEn    string `bson:"nameEn" json:"nameEn"`
	Grade     string `bson:"grade" json:"grade"`
	Nickname  string `bson:"nickname" json:"nickname"`
	Phone     string `bson:"phone" json:"phone"`
	Wechat    string `bson:"wechat" json:"wechat"`
	School    string `bson:"school" json:"school"`
	Notes     string `bson:"notes" json:"notes"`
}

// Teacher mirrors a legacy teacher document.
type Teacher struct {
	TeacherID string `bson:"teacherId" json:"teacherId"`
	Name      string `bson:"name" json:"name"`
	Phone     string `bson:"phone" json:"phone"`
}

// Course mirrors a legacy course document.
type Course struct {
	CourseID  string `bson:"courseId" json:"courseId"`
	TeacherID string `bson:"teacherId" json:"teacherId"`
	Grade     string `bson:"grade" json:"grade"`
	Subject   string `bson:"subject" json:"subject"`
}

// Class mirrors a legacy class document. Date and price were stored with
// whatever type the form produced, so both are kept loose until Normalise.
type Class struct {
	CourseID  string      `bson:"courseId" json:"courseId"`
	StudentID string      `bson:"studentId" json:"studentId"`
	Date      interface{} `bson:"date" json:"date"`
	Price     interface{} `bson:"price" json:"price"`
}

// StudentStatus mirrors a legacy student billing status document.
type StudentStatus struct {
	StudentID       string `bson:"studentId" json:"studentId"`
	Month           string `bson:"month" json:"month"`
	PaymentStatus   string `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMethod   string `bson:"paymentMethod" json:"paymentMethod"`
	StatementStatus string `bson:"statementStatus" json:"statementStatus"`
	Notes           string `bson:"notes" json:"notes"`
}

// TeacherStatus mirrors a legacy teacher billing status document.
type TeacherStatus struct {
	TeacherID  string `bson:"teacherId" json:"teacherId"`
	Month      string `bson:"month" json:"month"`
	IsVerified bool   `bson:"isVerified" json:"isVerified"`
	IsPaid     bool   `bson:"isPaid" json:"isPaid"`
	Notes      string `bson:"notes" json:"notes"`
}

// User mirrors a legacy user document. Passwords were stored in plain text.
type User struct {
	Username string `bson:"username" json:"username"`
	Password string `bson:"password" json:"password"`
	Role     string `bson:"role" json:"role"`
	Name     string `bson:"name" json:"name"`
}

// Normalise converts a legacy class into the relational model.
func (c Class) Normalise() (models.Class, error) {
	date, err := legacyDate(c.Date)
	if err != nil {
		return models.Class{}, err
	}
	price, err := legacyPrice(c.Price)
	if err != nil {
		return models.Class{}, err
	}
	return models.Class{
		CourseID:  strings.TrimSpace(c.CourseID),
		StudentID: strings.TrimSpace(c.StudentID),
		Date:      date,
		Price:     price,
	}, nil
}

func legacyDate(v interface{}) (models.Date, error) {
	switch d := v.(type) {
	case string:
		return models.ParseDate(d)
	case time.Time:
		d = d.UTC()
		return models.NewDate(d.Year(), d.Month(), d.Day()), nil
	case primitive.DateTime:
		t := d.Time().UTC()
		return models.NewDate(t.Year(), t.Month(), t.Day()), nil
	case nil:
		return models.Date{}, fmt.Errorf("missing date")
	default:
		return models.Date{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func legacyPrice(v interface{}) (float64, error) {
	var price float64
	switch p := v.(type) {
	case nil:
		return 0, nil
	case float64:
		price = p
	case float32:
		price = float64(p)
	case int32:
		price = float64(p)
	case int64:
		price = float64(p)
	case int:
		price = float64(p)
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(p.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid price %q", p.String())
		}
		price = parsed
	case string:
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid price %q", p)
		}
		price = parsed
	default:
		return 0, fmt.Errorf("unsupported price type %T", v)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, nil
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %v", price)
	}
	return price, nil
}

// legacyRole maps free-text legacy roles onto the supported set.
func legacyRole(raw string) models.UserRole {
	role := models.UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if role.Valid() {
		return role
	}
	return models.RoleStaff
}

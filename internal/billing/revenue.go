package billing

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// TopCourses caps the course bucket.
const TopCourses = 8

// RevenueFilter restricts revenue to a year and optionally a set of months.
// Zero values mean no restriction.
type RevenueFilter struct {
	Year   int
	Months []time.Month
}

func (f RevenueFilter) includes(d models.Date) bool {
	if d.IsZero() {
		return false
	}
	if f.Year != 0 && d.Year() != f.Year {
		return false
	}
	if len(f.Months) == 0 {
		return true
	}
	for _, m := range f.Months {
		if d.Month() == m {
			return true
		}
	}
	return false
}

// Bucket is one slice of revenue.
type Bucket struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Amount     float64 `json:"amount"`
	ClassCount int     `json:"classCount"`
}

// Revenue is the dashboard view over a set of classes.
type Revenue struct {
	ByTeacher  []Bucket `json:"byTeacher"`
	ByCourse   []Bucket `json:"byCourse"`
	ByGrade    []Bucket `json:"byGrade"`
	ByMonth    []Bucket `json:"byMonth"`
	GrandTotal float64  `json:"grandTotal"`
	ClassCount int      `json:"classCount"`
}

type bucketSet struct {
	index   map[string]int
	buckets []Bucket
}

func newBucketSet() *bucketSet {
	return &bucketSet{index: make(map[string]int), buckets: make([]Bucket, 0)}
}

func (s *bucketSet) add(key, label string, amount float64) {
	pos, ok := s.index[key]
	if !ok {
		pos = len(s.buckets)
		s.index[key] = pos
		s.buckets = append(s.buckets, Bucket{Key: key, Label: label})
	}
	s.buckets[pos].Amount += amount
	s.buckets[pos].ClassCount++
}

// BucketRevenue fans every class matching the filter into the teacher, course,
// grade and month buckets. The course bucket keeps the top entries by amount,
// the month bucket is chronological, the rest keep first-appearance order.
func BucketRevenue(classes []models.Class, lookup *Lookup, filter RevenueFilter) Revenue {
	teachers := newBucketSet()
	courses := newBucketSet()
	grades := newBucketSet()
	months := newBucketSet()

	count := 0
	for _, joined := range lookup.Join(classes) {
		if !filter.includes(joined.Class.Date) {
			continue
		}
		count++
		amount := Price(joined.Class.Price)

		teacherLabel := ""
		if t, ok := joined.Teacher.Get(); ok {
			teacherLabel = t.Name
		}
		teachers.add(joined.Teacher.RawID(), teacherLabel, amount)

		courseLabel, grade := "", ""
		if c, ok := joined.Course.Get(); ok {
			courseLabel = strings.TrimSpace(c.Grade + " " + c.Subject)
			grade = c.Grade
		}
		courses.add(joined.Course.RawID(), courseLabel, amount)
		grades.add(grade, grade, amount)

		month := MonthOf(joined.Class.Date).String()
		months.add(month, month, amount)
	}

	byCourse := courses.buckets
	sort.SliceStable(byCourse, func(i, j int) bool { return byCourse[i].Amount > byCourse[j].Amount })
	if len(byCourse) > TopCourses {
		byCourse = byCourse[:TopCourses]
	}

	byMonth := months.buckets
	sort.SliceStable(byMonth, func(i, j int) bool { return byMonth[i].Key < byMonth[j].Key })

	var total float64
	for _, b := range teachers.buckets {
		total += b.Amount
	}

	return Revenue{
		ByTeacher:  teachers.buckets,
		ByCourse:   byCourse,
		ByGrade:    grades.buckets,
		ByMonth:    byMonth,
		GrandTotal: total,
		ClassCount: count,
	}
}

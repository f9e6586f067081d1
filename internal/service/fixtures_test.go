package service

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

type stubCacheRepo struct {
	store       map[string][]byte
	invalidated []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	for key := range s.store {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.store, key)
		}
	}
	return nil
}

type stubCatalog struct {
	students []models.Student
	teachers []models.Teacher
	courses  []models.Course
	classes  []models.Class
	err      error
	calls    int
}

func (c *stubCatalog) Load(_ context.Context, month *billing.Month) (*Snapshot, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	classes := c.classes
	if month != nil {
		classes = billing.FilterMonth(c.classes, *month)
	}
	return &Snapshot{Classes: classes, Lookup: billing.NewLookup(c.students, c.teachers, c.courses)}, nil
}

// tutoringCatalog is two teachers, three courses, two students and a
// dangling class, spread over March and April 2025.
func tutoringCatalog() *stubCatalog {
	return &stubCatalog{
		students: []models.Student{
			{ID: "s-1", StudentID: "S001", NameZh: "王小明", Grade: "G7"},
			{ID: "s-2", StudentID: "S002", NameEn: "Amy", Grade: "G8"},
		},
		teachers: []models.Teacher{
			{ID: "t-1", TeacherID: "T1", Name: "Ms Lin"},
			{ID: "t-2", TeacherID: "T2", Name: "Mr Chen"},
		},
		courses: []models.Course{
			{ID: "c-1", CourseID: "C10", TeacherID: "T1", Grade: "G7", Subject: "Math"},
			{ID: "c-2", CourseID: "C20", TeacherID: "T2", Grade: "G8", Subject: "English"},
			{ID: "c-3", CourseID: "C30", TeacherID: "T9", Grade: "G8", Subject: "Physics"},
		},
		classes: []models.Class{
			{ID: "k-1", CourseID: "C10", StudentID: "S001", Date: models.NewDate(2025, time.March, 3), Price: 500},
			{ID: "k-2", CourseID: "C20", StudentID: "S001", Date: models.NewDate(2025, time.March, 5), Price: 700},
			{ID: "k-3", CourseID: "C20", StudentID: "S002", Date: models.NewDate(2025, time.March, 7), Price: 700},
			{ID: "k-4", CourseID: "C30", StudentID: "S002", Date: models.NewDate(2025, time.March, 9), Price: 300},
			{ID: "k-5", CourseID: "C10", StudentID: "S001", Date: models.NewDate(2025, time.April, 1), Price: 500},
		},
	}
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

func TestTeacherRepositoryListSearch(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE (LOWER(teacher_id) LIKE $1 OR LOWER(name) LIKE $1 OR phone LIKE $1) ORDER BY teacher_id ASC, id ASC")).
		WithArgs("%lin%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "name", "phone", "created_at", "updated_at"}).
			AddRow("t1", "T1", "Lin", "", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE")).
		WithArgs("%lin%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	teachers, total, err := repo.List(context.Background(), models.TeacherFilter{Search: "Lin", SortBy: "teacherId"})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses ORDER BY created_at, id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "teacher_id", "grade", "subject", "created_at", "updated_at"}).
			AddRow("c1", "C1", "T1", "G7", "Math", time.Now(), time.Now()))

	courses, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "T1", courses[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

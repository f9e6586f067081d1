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

func TestClassRepositoryListBetween(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	from := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "class_date", "price", "created_at", "updated_at"}).
		AddRow("c1", "C1", "S1", time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC), 100.0, time.Now(), time.Now()).
		AddRow("c2", "C1", "S1", "2025-07-10", 200.0, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE class_date >= $1 AND class_date < $2 ORDER BY created_at, id")).
		WithArgs(from, to).
		WillReturnRows(rows)

	classes, err := repo.ListBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "2025-07-03", classes[0].Date.String())
	assert.Equal(t, "2025-07-10", classes[1].Date.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	from := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE 1=1 AND student_id = $1 AND class_date >= $2 AND class_date < $3 ORDER BY class_date DESC, id ASC")).
		WithArgs("S1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE 1=1 AND student_id = $1")).
		WithArgs("S1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	classes, total, err := repo.List(context.Background(), models.ClassFilter{StudentID: "S1", From: &from, To: &to, SortBy: "date", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").
		WithArgs(sqlmock.AnyArg(), "C1", "S1", sqlmock.AnyArg(), 150.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.Class{CourseID: "C1", StudentID: "S1", Date: models.NewDate(2025, time.July, 1), Price: 150}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

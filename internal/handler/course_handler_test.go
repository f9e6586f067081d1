package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/service"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
)

type fakeCourseSrv struct {
	lastFilter models.CourseFilter
	imported   []export.Record
}

func (f *fakeCourseSrv) List(_ context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Course{{ID: "c1", CourseID: "C101", TeacherID: filter.TeacherID}}, &models.Pagination{Page: 1, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeCourseSrv) Get(_ context.Context, id string) (*models.Course, error) {
	return &models.Course{ID: id}, nil
}

func (f *fakeCourseSrv) Create(_ context.Context, req service.CourseRequest) (*models.Course, error) {
	return &models.Course{ID: "c-new", CourseID: req.CourseID}, nil
}

func (f *fakeCourseSrv) Update(_ context.Context, id string, req service.CourseRequest) (*models.Course, error) {
	return &models.Course{ID: id, CourseID: req.CourseID}, nil
}

func (f *fakeCourseSrv) Delete(context.Context, string) error { return nil }

func (f *fakeCourseSrv) BulkDelete(_ context.Context, req dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	return nil, appErrors.ErrConfirmationMismatch
}

func (f *fakeCourseSrv) Import(_ context.Context, records []export.Record) *dto.ImportResult {
	f.imported = records
	return &dto.ImportResult{SuccessCount: len(records)}
}

type fakeTeacherSrv struct {
	updated service.TeacherRequest
}

func (f *fakeTeacherSrv) List(_ context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func (f *fakeTeacherSrv) Get(_ context.Context, id string) (*models.Teacher, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
}

func (f *fakeTeacherSrv) Create(_ context.Context, req service.TeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: "t-new", TeacherID: req.TeacherID, Name: req.Name}, nil
}

func (f *fakeTeacherSrv) Update(_ context.Context, id string, req service.TeacherRequest) (*models.Teacher, error) {
	f.updated = req
	return &models.Teacher{ID: id, TeacherID: req.TeacherID, Name: req.Name}, nil
}

func (f *fakeTeacherSrv) Delete(context.Context, string) error { return nil }

func (f *fakeTeacherSrv) BulkDelete(_ context.Context, req dto.BulkDeleteRequest) (*dto.BulkDeleteResponse, error) {
	return &dto.BulkDeleteResponse{SuccessCount: len(req.IDs)}, nil
}

func (f *fakeTeacherSrv) Import(_ context.Context, records []export.Record) *dto.ImportResult {
	return &dto.ImportResult{}
}

func TestCourseHandlerListReadsTeacherFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCourseSrv{}
	handler := NewCourseHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses?teacherId=T1&grade=G8&search=math", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T1", srv.lastFilter.TeacherID)
	assert.Equal(t, "G8", srv.lastFilter.Grade)
	assert.Equal(t, "math", srv.lastFilter.Search)
	assert.Equal(t, defaultPageSize, srv.lastFilter.PageSize)
}

func TestCourseHandlerImportAcceptsRawCSVBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCourseSrv{}
	handler := NewCourseHandler(srv)

	body := "courseId,teacherId,grade,subject\nC101,T1,G8,Math\nC102,T2,,\n"
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses/import", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "text/csv")

	handler.Import(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.imported, 2)
	assert.Equal(t, "C101", srv.imported[0].Get("courseId"))
	assert.Equal(t, []string{"subject"}, srv.imported[1].Missing("teacherId", "subject"))
}

func TestCourseHandlerBulkDeleteConfirmationMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCourseHandler(&fakeCourseSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses/bulk-delete", strings.NewReader(`{"ids":["c1"],"confirmation":"delete"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.BulkDelete(c)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrConfirmationMismatch.Status, rec.Code)
	assert.Equal(t, appErrors.ErrConfirmationMismatch.Code, env.Error.Code)
}

func TestTeacherHandlerUpdateBindsPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeTeacherSrv{}
	handler := NewTeacherHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	c.Request = httptest.NewRequest(http.MethodPut, "/teachers/t1", strings.NewReader(`{"teacherId":"T1","name":"Ms Lin","phone":"0912"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ms Lin", srv.updated.Name)
	assert.Equal(t, "0912", srv.updated.Phone)
}

func TestTeacherHandlerRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherHandler(&fakeTeacherSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/teachers", strings.NewReader(`{"teacherId":`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeacherHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherHandler(&fakeTeacherSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/teachers/missing", nil)

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

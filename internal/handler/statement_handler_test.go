package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/service"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

type fakeStatementSrv struct {
	lastID    string
	lastMonth string
}

func (f *fakeStatementSrv) StudentStatement(_ context.Context, id, month string) (*service.StatementFile, error) {
	f.lastID, f.lastMonth = id, month
	if id == "S404" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no classes for this month")
	}
	return &service.StatementFile{Filename: "2025_03_" + id + ".pdf", Payload: []byte("%PDF-1.3")}, nil
}

func (f *fakeStatementSrv) TeacherStatement(_ context.Context, id, month string) (*service.StatementFile, error) {
	f.lastID, f.lastMonth = id, month
	return &service.StatementFile{Filename: "2025_03_" + id + ".pdf", Payload: []byte("%PDF-1.3")}, nil
}

type fakeStatementJobSrv struct {
	actor    string
	req      dto.StatementJobRequest
	download *service.StatementDownload
}

func (f *fakeStatementJobSrv) CreateJob(_ context.Context, req dto.StatementJobRequest, actor string) (*dto.StatementJobResponse, error) {
	f.req, f.actor = req, actor
	return &dto.StatementJobResponse{ID: "job-1", Status: models.StatementJobQueued}, nil
}

func (f *fakeStatementJobSrv) GetStatus(_ context.Context, id string) (*dto.StatementJobStatusResponse, error) {
	return &dto.StatementJobStatusResponse{ID: id, Status: models.StatementJobFinished, Failures: models.StatementFailures{}}, nil
}

func (f *fakeStatementJobSrv) ResolveDownload(_ context.Context, token string) (*service.StatementDownload, error) {
	if f.download == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return f.download, nil
}

func TestStatementHandlerStudentRequiresMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{}, &fakeStatementJobSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "S001"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/students/S001", nil)

	handler.Student(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatementHandlerStudentPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStatementSrv{}
	handler := NewStatementHandler(srv, &fakeStatementJobSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "S001"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/students/S001?month=2025-03", nil)

	handler.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2025-03", srv.lastMonth)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestStatementHandlerStudentWithoutClasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{}, &fakeStatementJobSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "S404"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/students/S404?month=2025-03", nil)

	handler.Student(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatementHandlerCreateJobRequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{}, &fakeStatementJobSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/statements/jobs", strings.NewReader(`{"kind":"student","month":"2025-03"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.CreateJob(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatementHandlerCreateJobUsesSessionActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jobs := &fakeStatementJobSrv{}
	handler := NewStatementHandler(&fakeStatementSrv{}, jobs)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextSessionKey, &models.SessionClaims{Session: models.Session{Username: "admin", Role: models.RoleAdmin}})
	c.Request = httptest.NewRequest(http.MethodPost, "/statements/jobs", strings.NewReader(`{"kind":"student","month":"2025-03"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.CreateJob(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "admin", jobs.actor)
	assert.Equal(t, models.StatementKindStudent, jobs.req.Kind)
}

func TestStatementHandlerDownloadStreamsArchive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "statements_student_2025-03.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04zip"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	jobs := &fakeStatementJobSrv{download: &service.StatementDownload{File: file, Size: 7, Filename: filepath.Base(path)}}
	handler := NewStatementHandler(&fakeStatementSrv{}, jobs)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/download/tok", nil)

	handler.Download(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "statements_student_2025-03.zip")
	assert.Equal(t, "PK\x03\x04zip", rec.Body.String())
}

func TestStatementHandlerDownloadRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatementHandler(&fakeStatementSrv{}, &fakeStatementJobSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "token", Value: "forged"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/statements/download/forged", nil)

	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

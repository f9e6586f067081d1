package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

type fakeBillingSrv struct {
	lastQuery dto.BillingQuery
	hit       bool
	err       error
}

func (f *fakeBillingSrv) StudentBilling(_ context.Context, q dto.BillingQuery) (*dto.StudentBillingResponse, bool, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, false, f.err
	}
	return &dto.StudentBillingResponse{Month: q.Month, TotalAmount: 2200, ClassCount: 4}, f.hit, nil
}

func (f *fakeBillingSrv) TeacherBilling(_ context.Context, q dto.BillingQuery) (*dto.TeacherBillingResponse, bool, error) {
	f.lastQuery = q
	return &dto.TeacherBillingResponse{Month: q.Month, TotalAmount: 2200, ClassCount: 4}, f.hit, nil
}

func (f *fakeBillingSrv) ExportStudentBilling(_ context.Context, q dto.BillingQuery) ([]byte, string, error) {
	f.lastQuery = q
	return []byte("studentId,total\nS001,1200\n"), "student_billing_" + q.Month + ".csv", nil
}

func (f *fakeBillingSrv) ExportTeacherBilling(_ context.Context, q dto.BillingQuery) ([]byte, string, error) {
	return []byte("teacherId,total\n"), "teacher_billing_" + q.Month + ".csv", nil
}

type fakeStatusSrv struct {
	studentPatch models.StudentStatusPatch
	teacherPatch models.TeacherStatusPatch
	listedMonth  string
}

func (f *fakeStatusSrv) ListStudentStatuses(_ context.Context, month string) ([]models.StudentBillingStatus, error) {
	f.listedMonth = month
	return []models.StudentBillingStatus{{StudentID: "S001", Month: month}}, nil
}

func (f *fakeStatusSrv) ListTeacherStatuses(_ context.Context, month string) ([]models.TeacherBillingStatus, error) {
	f.listedMonth = month
	return nil, nil
}

func (f *fakeStatusSrv) UpsertStudentStatus(_ context.Context, patch models.StudentStatusPatch) (*models.StudentBillingStatus, error) {
	f.studentPatch = patch
	return &models.StudentBillingStatus{StudentID: patch.StudentID, Month: patch.Month, PaymentStatus: *patch.PaymentStatus}, nil
}

func (f *fakeStatusSrv) UpsertTeacherStatus(_ context.Context, patch models.TeacherStatusPatch) (*models.TeacherBillingStatus, error) {
	f.teacherPatch = patch
	return &models.TeacherBillingStatus{TeacherID: patch.TeacherID, Month: patch.Month}, nil
}

func TestBillingHandlerStudentsReportsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeBillingSrv{hit: true}
	handler := NewBillingHandler(srv, &fakeStatusSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/billing/students?month=2025-03&sort=totalAmount&order=desc", nil)

	handler.Students(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.BillingQuery{Month: "2025-03", Sort: "totalAmount", Order: "desc"}, srv.lastQuery)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, "2025-03", env.Meta["month"])
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	var body dto.StudentBillingResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, 2200.0, body.TotalAmount)
}

func TestBillingHandlerPropagatesValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBillingHandler(&fakeBillingSrv{err: appErrors.Clone(appErrors.ErrValidation, "month must use YYYY-MM")}, &fakeStatusSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/billing/students?month=March", nil)

	handler.Students(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingHandlerExportStudentsAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBillingHandler(&fakeBillingSrv{}, &fakeStatusSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/billing/students/export?month=2025-03", nil)

	handler.ExportStudents(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "student_billing_2025-03.csv")
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Body.String(), "S001,1200")
}

func TestBillingHandlerStatusListRequiresMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBillingHandler(&fakeBillingSrv{}, &fakeStatusSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/student-billing-status", nil)

	handler.StudentStatuses(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingHandlerUpsertStudentStatusKeepsAbsentFieldsNil(t *testing.T) {
	gin.SetMode(gin.TestMode)
	statuses := &fakeStatusSrv{}
	handler := NewBillingHandler(&fakeBillingSrv{}, statuses)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/student-billing-status", strings.NewReader(`{"studentId":"S001","month":"2025-03","paymentStatus":"已繳交"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpsertStudentStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, statuses.studentPatch.PaymentStatus)
	assert.Equal(t, models.PaymentStatusPaid, *statuses.studentPatch.PaymentStatus)
	assert.Nil(t, statuses.studentPatch.PaymentMethod)
	assert.Nil(t, statuses.studentPatch.StatementStatus)
}

func TestResponseMetaMiddlewareWithBillingRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	handler := NewBillingHandler(&fakeBillingSrv{hit: false}, &fakeStatusSrv{})
	router.GET("/billing/teachers", handler.Teachers)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/teachers?month=2025-04", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env.Meta["cache_hit"])
}

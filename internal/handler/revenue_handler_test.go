package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/service"
)

type fakeRevenueSrv struct {
	lastQuery  service.RevenueQuery
	lastFormat string
	calls      int
}

func (f *fakeRevenueSrv) Revenue(_ context.Context, q service.RevenueQuery) (*dto.RevenueResponse, bool, error) {
	f.calls++
	f.lastQuery = q
	return &dto.RevenueResponse{Year: q.Year, Months: q.Months}, false, nil
}

func (f *fakeRevenueSrv) Export(_ context.Context, q service.RevenueQuery, format string) ([]byte, string, string, error) {
	f.lastQuery = q
	f.lastFormat = format
	return []byte("%PDF"), "revenue_2025.pdf", "application/pdf", nil
}

func TestRevenueHandlerParsesYearAndMonths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRevenueSrv{}
	handler := NewRevenueHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/revenue?year=2025&months=3,1,", nil)

	handler.Revenue(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2025, srv.lastQuery.Year)
	assert.Equal(t, []int{3, 1}, srv.lastQuery.Months)
}

func TestRevenueHandlerRejectsNonNumericMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRevenueSrv{}
	handler := NewRevenueHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/revenue?months=jan", nil)

	handler.Revenue(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.calls)
}

func TestRevenueHandlerExportPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRevenueSrv{}
	handler := NewRevenueHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/revenue/export?year=2025&format=PDF", nil)

	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdf", srv.lastFormat)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "revenue_2025.pdf")
}

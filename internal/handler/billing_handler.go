package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/response"
)

type billingService interface {
	StudentBilling(ctx context.Context, query dto.BillingQuery) (*dto.StudentBillingResponse, bool, error)
	TeacherBilling(ctx context.Context, query dto.BillingQuery) (*dto.TeacherBillingResponse, bool, error)
	ExportStudentBilling(ctx context.Context, query dto.BillingQuery) ([]byte, string, error)
	ExportTeacherBilling(ctx context.Context, query dto.BillingQuery) ([]byte, string, error)
}

type billingStatusService interface {
	ListStudentStatuses(ctx context.Context, month string) ([]models.StudentBillingStatus, error)
	ListTeacherStatuses(ctx context.Context, month string) ([]models.TeacherBillingStatus, error)
	UpsertStudentStatus(ctx context.Context, patch models.StudentStatusPatch) (*models.StudentBillingStatus, error)
	UpsertTeacherStatus(ctx context.Context, patch models.TeacherStatusPatch) (*models.TeacherBillingStatus, error)
}

// BillingHandler serves monthly billing tables and their payment statuses.
type BillingHandler struct {
	billing  billingService
	statuses billingStatusService
}

// NewBillingHandler constructs BillingHandler.
func NewBillingHandler(billing billingService, statuses billingStatusService) *BillingHandler {
	return &BillingHandler{billing: billing, statuses: statuses}
}

func billingQuery(c *gin.Context) dto.BillingQuery {
	return dto.BillingQuery{
		Month: strings.TrimSpace(c.Query("month")),
		Sort:  strings.TrimSpace(c.Query("sort")),
		Order: strings.TrimSpace(c.Query("order")),
	}
}

// Students godoc
// @Summary Student billing for a month
// @Tags Billing
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Param sort query string false "totalAmount, classCount or id"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /billing/students [get]
func (h *BillingHandler) Students(c *gin.Context) {
	query := billingQuery(c)
	result, hit, err := h.billing.StudentBilling(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, middleware.MetaMonth, query.Month)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Teachers godoc
// @Summary Teacher payouts for a month
// @Tags Billing
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Param sort query string false "totalAmount, classCount or id"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /billing/teachers [get]
func (h *BillingHandler) Teachers(c *gin.Context) {
	query := billingQuery(c)
	result, hit, err := h.billing.TeacherBilling(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, middleware.MetaMonth, query.Month)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// ExportStudents godoc
// @Summary Download student billing as CSV
// @Tags Billing
// @Produce text/csv
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {file} binary
// @Router /billing/students/export [get]
func (h *BillingHandler) ExportStudents(c *gin.Context) {
	payload, filename, err := h.billing.ExportStudentBilling(c.Request.Context(), billingQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendBytes(c, filename, "text/csv; charset=utf-8", payload)
}

// ExportTeachers godoc
// @Summary Download teacher payouts as CSV
// @Tags Billing
// @Produce text/csv
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {file} binary
// @Router /billing/teachers/export [get]
func (h *BillingHandler) ExportTeachers(c *gin.Context) {
	payload, filename, err := h.billing.ExportTeacherBilling(c.Request.Context(), billingQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendBytes(c, filename, "text/csv; charset=utf-8", payload)
}

// StudentStatuses godoc
// @Summary List stored student payment statuses
// @Tags Billing
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /student-billing-status [get]
func (h *BillingHandler) StudentStatuses(c *gin.Context) {
	month := strings.TrimSpace(c.Query("month"))
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	rows, err := h.statuses.ListStudentStatuses(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// TeacherStatuses godoc
// @Summary List stored teacher payout statuses
// @Tags Billing
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /teacher-billing-status [get]
func (h *BillingHandler) TeacherStatuses(c *gin.Context) {
	month := strings.TrimSpace(c.Query("month"))
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	rows, err := h.statuses.ListTeacherStatuses(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpsertStudentStatus godoc
// @Summary Create or update a student's monthly status
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body models.StudentStatusPatch true "Status patch"
// @Success 200 {object} response.Envelope
// @Router /student-billing-status [post]
func (h *BillingHandler) UpsertStudentStatus(c *gin.Context) {
	var patch models.StudentStatusPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	status, err := h.statuses.UpsertStudentStatus(c.Request.Context(), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// UpsertTeacherStatus godoc
// @Summary Create or update a teacher's monthly status
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body models.TeacherStatusPatch true "Status patch"
// @Success 200 {object} response.Envelope
// @Router /teacher-billing-status [post]
func (h *BillingHandler) UpsertTeacherStatus(c *gin.Context) {
	var patch models.TeacherStatusPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	status, err := h.statuses.UpsertTeacherStatus(c.Request.Context(), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

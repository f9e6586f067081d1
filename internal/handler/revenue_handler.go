package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/service"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/response"
)

type revenueService interface {
	Revenue(ctx context.Context, query service.RevenueQuery) (*dto.RevenueResponse, bool, error)
	Export(ctx context.Context, query service.RevenueQuery, format string) ([]byte, string, string, error)
}

// RevenueHandler exposes the revenue dashboard.
type RevenueHandler struct {
	service revenueService
}

// NewRevenueHandler constructs RevenueHandler.
func NewRevenueHandler(service revenueService) *RevenueHandler {
	return &RevenueHandler{service: service}
}

// revenueQuery reads year and a comma separated month list such as "1,3".
func revenueQuery(c *gin.Context) (service.RevenueQuery, error) {
	var query service.RevenueQuery
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "year must be a number")
		}
		query.Year = year
	}
	if raw := strings.TrimSpace(c.Query("months")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			month, err := strconv.Atoi(part)
			if err != nil {
				return query, appErrors.Clone(appErrors.ErrValidation, "months must be numbers")
			}
			query.Months = append(query.Months, month)
		}
	}
	return query, nil
}

// Revenue godoc
// @Summary Revenue buckets by grade, subject and month
// @Tags Revenue
// @Produce json
// @Param year query int false "Year, omitted for all years"
// @Param months query string false "Comma separated months, e.g. 1,3"
// @Success 200 {object} response.Envelope
// @Router /revenue [get]
func (h *RevenueHandler) Revenue(c *gin.Context) {
	query, err := revenueQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, hit, err := h.service.Revenue(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the revenue dashboard
// @Tags Revenue
// @Produce octet-stream
// @Param year query int false "Year"
// @Param months query string false "Comma separated months"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /revenue/export [get]
func (h *RevenueHandler) Export(c *gin.Context) {
	query, err := revenueQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, filename, mimeType, err := h.service.Export(c.Request.Context(), query, strings.ToLower(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendBytes(c, filename, mimeType, payload)
}

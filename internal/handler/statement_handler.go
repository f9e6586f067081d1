package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/service"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/response"
)

type statementService interface {
	StudentStatement(ctx context.Context, studentID, month string) (*service.StatementFile, error)
	TeacherStatement(ctx context.Context, teacherID, month string) (*service.StatementFile, error)
}

type statementJobService interface {
	CreateJob(ctx context.Context, req dto.StatementJobRequest, actor string) (*dto.StatementJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.StatementJobStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.StatementDownload, error)
}

// StatementHandler renders single statements and drives bulk archive jobs.
type StatementHandler struct {
	statements statementService
	jobs       statementJobService
}

// NewStatementHandler constructs StatementHandler.
func NewStatementHandler(statements statementService, jobs statementJobService) *StatementHandler {
	return &StatementHandler{statements: statements, jobs: jobs}
}

// Student godoc
// @Summary Render one student's monthly statement
// @Tags Statements
// @Produce application/pdf
// @Param id path string true "Student key"
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {file} binary
// @Router /statements/students/{id} [get]
func (h *StatementHandler) Student(c *gin.Context) {
	h.single(c, h.statements.StudentStatement)
}

// Teacher godoc
// @Summary Render one teacher's monthly statement
// @Tags Statements
// @Produce application/pdf
// @Param id path string true "Teacher key"
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {file} binary
// @Router /statements/teachers/{id} [get]
func (h *StatementHandler) Teacher(c *gin.Context) {
	h.single(c, h.statements.TeacherStatement)
}

func (h *StatementHandler) single(c *gin.Context, render func(context.Context, string, string) (*service.StatementFile, error)) {
	month := strings.TrimSpace(c.Query("month"))
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	file, err := render(c.Request.Context(), c.Param("id"), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendBytes(c, file.Filename, "application/pdf", file.Payload)
}

// CreateJob godoc
// @Summary Queue a bulk statement archive
// @Tags Statements
// @Accept json
// @Produce json
// @Param payload body dto.StatementJobRequest true "Job payload"
// @Success 202 {object} response.Envelope
// @Router /statements/jobs [post]
func (h *StatementHandler) CreateJob(c *gin.Context) {
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.StatementJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), req, session.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Bulk statement job progress
// @Tags Statements
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /statements/jobs/{id} [get]
func (h *StatementHandler) JobStatus(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished statement archive
// @Tags Statements
// @Produce application/zip
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /statements/download/{token} [get]
func (h *StatementHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()
	response.Attachment(c, download.Filename, "application/zip", download.Size, download.File)
}

package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
	"github.com/noah-isme/tutor-center-api/pkg/response"
)

const (
	defaultPageSize = 50
	maxUploadBytes  = 10 << 20
)

func sessionFromContext(c *gin.Context) *models.SessionClaims {
	claims, ok := middleware.CurrentSession(c)
	if !ok {
		return nil
	}
	return claims
}

// pageQuery reads page and limit. limit=0 asks for every row.
func pageQuery(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 0 {
		size = defaultPageSize
	}
	return page, size
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

// readImport accepts a multipart "file" field or a raw text/csv body.
func readImport(c *gin.Context) ([]export.Record, error) {
	var src io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return nil, appErrors.Internal(err, "failed to open upload")
		}
		defer file.Close()
		src = file
	} else {
		src = c.Request.Body
	}
	records, err := export.ReadCSV(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		return nil, appErrors.Validation(err, fmt.Sprintf("unreadable csv: %v", err))
	}
	return records, nil
}

func sendBytes(c *gin.Context, filename, mimeType string, payload []byte) {
	response.Attachment(c, filename, mimeType, int64(len(payload)), bytes.NewReader(payload))
}

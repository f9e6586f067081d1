package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
	"github.com/noah-isme/tutor-center-api/pkg/storage"
	"github.com/noah-isme/tutor-center-api/pkg/tasks"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, int64, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type statementRenderer interface {
	Render(doc export.StatementDocument) ([]byte, error)
}

// StatementConfig tunes statement layout and archive storage.
type StatementConfig struct {
	Organization      string
	PaymentNote       string
	APIPrefix         string
	ResultTTL         time.Duration
	RenderConcurrency int
}

// StatementFile is one rendered statement.
type StatementFile struct {
	Filename string
	Payload  []byte
}

// StatementArchive is the outcome of rendering every statement of a month.
type StatementArchive struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
	Succeeded    []string
	Failures     models.StatementFailures
}

// StatementService renders monthly statements and stores archive bundles.
type StatementService struct {
	catalog  catalogLoader
	renderer statementRenderer
	storage  fileStorage
	signer   *storage.SignedURLSigner
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      StatementConfig
	now      func() time.Time
}

// NewStatementService constructs a StatementService.
func NewStatementService(catalog catalogLoader, renderer statementRenderer, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg StatementConfig, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.RenderConcurrency <= 0 {
		cfg.RenderConcurrency = 4
	}
	return &StatementService{
		catalog:  catalog,
		renderer: renderer,
		storage:  files,
		signer:   signer,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// StudentStatement renders the statement of one student for a month.
func (s *StatementService) StudentStatement(ctx context.Context, studentID, month string) (*StatementFile, error) {
	return s.single(ctx, models.StatementKindStudent, studentID, month)
}

// TeacherStatement renders the statement of one teacher for a month.
func (s *StatementService) TeacherStatement(ctx context.Context, teacherID, month string) (*StatementFile, error) {
	return s.single(ctx, models.StatementKindTeacher, teacherID, month)
}

func (s *StatementService) single(ctx context.Context, kind models.StatementKind, groupID, rawMonth string) (*StatementFile, error) {
	month, err := billing.ParseMonth(rawMonth)
	if err != nil {
		return nil, appErrors.Validation(err, "month must use YYYY-MM")
	}
	groups, err := s.groups(ctx, kind, month)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		if group.GroupID != groupID {
			continue
		}
		payload, err := s.render(kind, month, group)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render statement")
		}
		return &StatementFile{Filename: billing.StatementFilename(month, group.GroupID, group.Name), Payload: payload}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no classes for %s %s in %s", kind, groupID, month))
}

// Generate renders every non-empty group of the job's month, bundles the
// successes into a ZIP and stores it behind a signed download token. A group
// that fails to render is reported in Failures and does not stop the rest.
func (s *StatementService) Generate(ctx context.Context, job *models.StatementJob) (*StatementArchive, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	month, err := billing.ParseMonth(job.Month)
	if err != nil {
		return nil, fmt.Errorf("job month: %w", err)
	}
	groups, err := s.groups(ctx, job.Kind, month)
	if err != nil {
		return nil, err
	}

	nonEmpty := make([]int, 0, len(groups))
	for i, group := range groups {
		if len(group.Lines) > 0 {
			nonEmpty = append(nonEmpty, i)
		}
	}
	payloads := make([][]byte, len(groups))
	outcomes := tasks.Run(ctx, nonEmpty, s.cfg.RenderConcurrency, func(_ context.Context, i int) error {
		payload, err := s.render(job.Kind, month, groups[i])
		if err != nil {
			return err
		}
		payloads[i] = payload
		return nil
	})

	archive := &StatementArchive{Succeeded: []string{}, Failures: models.StatementFailures{}}
	entries := make([]export.ArchiveEntry, 0, len(outcomes))
	for _, outcome := range outcomes {
		group := groups[outcome.Item]
		s.metrics.RecordStatementRender(string(job.Kind), outcome.OK())
		if !outcome.OK() {
			s.logger.Sugar().Warnw("statement render failed", "job_id", job.ID, "group", group.GroupID, "error", outcome.Err)
			archive.Failures = append(archive.Failures, models.StatementFailure{GroupID: group.GroupID, Name: group.Name, Reason: outcome.Err.Error()})
			continue
		}
		archive.Succeeded = append(archive.Succeeded, group.GroupID)
		entries = append(entries, export.ArchiveEntry{
			Name: billing.StatementFilename(month, group.GroupID, group.Name),
			Data: payloads[outcome.Item],
		})
	}

	payload, err := export.BuildZip(entries)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("statements_%s_%s_%s.zip", job.Kind, month, s.now().UTC().Format("20060102_150405"))
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	archive.RelativePath = relPath
	archive.Token = token
	archive.ExpiresAt = expiresAt
	archive.URL = s.downloadURL(token)
	return archive, nil
}

// ParseToken validates a download token.
func (s *StatementService) ParseToken(token string, allowExpired bool) (storage.Grant, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored archive and its size.
func (s *StatementService) Open(relPath string) (*os.File, int64, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored archive.
func (s *StatementService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes archives older than ttl, or the configured TTL when ttl <= 0.
func (s *StatementService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *StatementService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}
	return fmt.Sprintf("%s/statements/download/%s", prefix, token)
}

func (s *StatementService) groups(ctx context.Context, kind models.StatementKind, month billing.Month) ([]billing.StatementGroup, error) {
	snapshot, err := s.catalog.Load(ctx, &month)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load statement data")
	}
	switch kind {
	case models.StatementKindStudent:
		return billing.GroupStudentStatements(snapshot.Classes, month, snapshot.Lookup), nil
	case models.StatementKindTeacher:
		return billing.GroupTeacherStatements(snapshot.Classes, month, snapshot.Lookup), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be student or teacher")
	}
}

func (s *StatementService) render(kind models.StatementKind, month billing.Month, group billing.StatementGroup) ([]byte, error) {
	return s.renderer.Render(statementDocument(kind, month, group, s.cfg))
}

func statementDocument(kind models.StatementKind, month billing.Month, group billing.StatementGroup, cfg StatementConfig) export.StatementDocument {
	doc := export.StatementDocument{
		Organization: cfg.Organization,
		PartyName:    group.Name,
		PartyID:      group.GroupID,
		Period:       month.String(),
		Total:        strconv.FormatInt(billing.StatementTotal(group.Lines), 10),
		Footer:       cfg.PaymentNote,
		Lines:        make([]export.StatementLine, 0, len(group.Lines)),
	}
	if doc.PartyName == "" {
		doc.PartyName = "unknown"
	}
	if kind == models.StatementKindTeacher {
		doc.Title = "Teacher Statement"
		doc.PartyLabel = "Teacher"
		doc.CounterpartLabel = "Student"
	} else {
		doc.Title = "Student Statement"
		doc.PartyLabel = "Student"
		doc.CounterpartLabel = "Teacher"
	}
	for _, line := range group.Lines {
		subject := ""
		if c, ok := line.Course.Get(); ok {
			subject = c.Subject
		}
		doc.Lines = append(doc.Lines, export.StatementLine{
			Date:    line.Class.Date.String(),
			Course:  line.Course.RawID(),
			Subject: subject,
			Party:   counterpart(kind, line),
			Amount:  strconv.FormatInt(billing.LineAmount(line.Class.Price), 10),
		})
	}
	return doc
}

func counterpart(kind models.StatementKind, line billing.JoinedClass) string {
	if kind == models.StatementKindTeacher {
		if st, ok := line.Student.Get(); ok {
			return st.DisplayName()
		}
		return line.Student.RawID()
	}
	if t, ok := line.Teacher.Get(); ok {
		return t.Name
	}
	return line.Teacher.RawID()
}

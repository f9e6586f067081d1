package legacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/pkg/tasks"
)

type studentWriter interface {
	Create(ctx context.Context, student *models.Student) error
}

type teacherWriter interface {
	Create(ctx context.Context, teacher *models.Teacher) error
}

type courseWriter interface {
	Create(ctx context.Context, course *models.Course) error
}

type classWriter interface {
	Create(ctx context.Context, class *models.Class) error
}

type studentStatusWriter interface {
	Upsert(ctx context.Context, patch models.StudentStatusPatch) (*models.StudentBillingStatus, error)
}

type teacherStatusWriter interface {
	Upsert(ctx context.Context, patch models.TeacherStatusPatch) (*models.TeacherBillingStatus, error)
}

type userWriter interface {
	Create(ctx context.Context, user *models.User) (bool, error)
}

// Targets groups the relational stores a dump is loaded into.
type Targets struct {
	Students        studentWriter
	Teachers        teacherWriter
	Courses         courseWriter
	Classes         classWriter
	StudentStatuses studentStatusWriter
	TeacherStatuses teacherStatusWriter
	Users           userWriter
}

// Tally counts loaded and rejected documents of one collection.
type Tally struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Report is the per-collection outcome of a load.
type Report map[string]Tally

// Loader writes a Dump into Postgres.
type Loader struct {
	targets     Targets
	concurrency int
	hashCost    int
	logger      *zap.Logger
}

// NewLoader constructs a Loader. concurrency bounds in-flight inserts per collection.
func NewLoader(targets Targets, concurrency int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Loader{targets: targets, concurrency: concurrency, hashCost: bcrypt.DefaultCost, logger: logger}
}

// Load inserts every collection in dependency order. Individual failures are
// logged and counted; they never stop the load. Only ctx cancellation does.
func (l *Loader) Load(ctx context.Context, dump *Dump) (Report, error) {
	report := Report{}
	steps := []struct {
		name string
		run  func(context.Context, *Dump) Tally
	}{
		{CollectionStudents, l.loadStudents},
		{CollectionTeachers, l.loadTeachers},
		{CollectionCourses, l.loadCourses},
		{CollectionClasses, l.loadClasses},
		{CollectionStudentStatuses, l.loadStudentStatuses},
		{CollectionTeacherStatuses, l.loadTeacherStatuses},
		{CollectionUsers, l.loadUsers},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		tally := step.run(ctx, dump)
		report[step.name] = tally
		l.logger.Sugar().Infow("collection loaded", "collection", step.name, "succeeded", tally.Succeeded, "failed", tally.Failed, "skipped", tally.Skipped)
	}
	return report, ctx.Err()
}

// run applies fn to items and folds the outcomes into a tally.
func run[T any](ctx context.Context, l *Loader, collection string, items []T, fn func(context.Context, T) error) Tally {
	outcomes := tasks.Run(ctx, items, l.concurrency, fn)
	var tally Tally
	for i, o := range outcomes {
		switch {
		case o.OK():
			tally.Succeeded++
		case errors.Is(o.Err, errSkipped):
			tally.Skipped++
		default:
			tally.Failed++
			l.logger.Warn("legacy document rejected", zap.String("collection", collection), zap.Int("index", i), zap.Error(o.Err))
		}
	}
	return tally
}

var errSkipped = errors.New("already exists")

func (l *Loader) loadStudents(ctx context.Context, dump *Dump) Tally {
	return run(ctx, l, CollectionStudents, dump.Students, func(ctx context.Context, s Student) error {
		if strings.TrimSpace(s.StudentID) == "" {
			return fmt.Errorf("studentId is empty")
		}
		return l.targets.Students.Create(ctx, &models.Student{
			StudentID: strings.TrimSpace(s.StudentID),
			NameZh:    s.NameZh,
			NameEn:    s.NameEn,
			Grade:     s.Grade,
			Nickname:  s.Nickname,
			Phone:     s.Phone,
			Wechat:    s.Wechat,
			School:    s.School,
			Notes:     s.Notes,
		})
	})
}

func (l *Loader) loadTeachers(ctx context.Context, dump *Dump) Tally {
	return run(ctx, l, CollectionTeachers, dump.Teachers, func(ctx context.Context, t Teacher) error {
		if strings.TrimSpace(t.TeacherID) == "" {
			return fmt.Errorf("teacherId is empty")
		}
		return l.targets.Teachers.Create(ctx, &models.Teacher{TeacherID: strings.TrimSpace(t.TeacherID), Name: t.Name, Phone: t.Phone})
	})
}

func (l *Loader) loadCourses(ctx context.Context, dump *Dump) Tally {
	return run(ctx, l, CollectionCourses, dump.Courses, func(ctx context.Context, c Course) error {
		if strings.TrimSpace(c.CourseID) == "" {
			return fmt.Errorf("courseId is empty")
		}
		return l.targets.Courses.Create(ctx, &models.Course{
			CourseID:  strings.TrimSpace(c.CourseID),
			TeacherID: strings.TrimSpace(c.TeacherID),
			Grade:     c.Grade,
			Subject:   c.Subject,
		})
	})
}

func (l *Loader) loadClasses(ctx context.Context, dump *Dump) Tally {
	return run(ctx, l, CollectionClasses, dump.Classes, func(ctx context.Context, c Class) error {
		class, err := c.Normalise()
		if err != nil {
			return err
		}
		return l.targets.Classes.Create(ctx, &class)
	})
}

// Status rows upsert one at a time: legacy duplicates of the same (id, month)
// must collapse in document order, so the last write wins deterministically.
func (l *Loader) loadStudentStatuses(ctx context.Context, dump *Dump) Tally {
	var tally Tally
	for i, s := range dump.StudentStatuses {
		if s.StudentID == "" || s.Month == "" {
			tally.Failed++
			l.logger.Warn("legacy document rejected", zap.String("collection", CollectionStudentStatuses), zap.Int("index", i), zap.String("reason", "studentId or month is empty"))
			continue
		}
		_, err := l.targets.StudentStatuses.Upsert(ctx, models.StudentStatusPatch{
			StudentID:       s.StudentID,
			Month:           s.Month,
			PaymentStatus:   nonEmpty(s.PaymentStatus),
			PaymentMethod:   nonEmpty(s.PaymentMethod),
			StatementStatus: nonEmpty(s.StatementStatus),
			Notes:           nonEmpty(s.Notes),
		})
		if err != nil {
			tally.Failed++
			l.logger.Warn("legacy document rejected", zap.String("collection", CollectionStudentStatuses), zap.Int("index", i), zap.Error(err))
			continue
		}
		tally.Succeeded++
	}
	return tally
}

func (l *Loader) loadTeacherStatuses(ctx context.Context, dump *Dump) Tally {
	var tally Tally
	for i, s := range dump.TeacherStatuses {
		if s.TeacherID == "" || s.Month == "" {
			tally.Failed++
			l.logger.Warn("legacy document rejected", zap.String("collection", CollectionTeacherStatuses), zap.Int("index", i), zap.String("reason", "teacherId or month is empty"))
			continue
		}
		verified, paid := s.IsVerified, s.IsPaid
		_, err := l.targets.TeacherStatuses.Upsert(ctx, models.TeacherStatusPatch{
			TeacherID:  s.TeacherID,
			Month:      s.Month,
			IsVerified: &verified,
			IsPaid:     &paid,
			Notes:      nonEmpty(s.Notes),
		})
		if err != nil {
			tally.Failed++
			l.logger.Warn("legacy document rejected", zap.String("collection", CollectionTeacherStatuses), zap.Int("index", i), zap.Error(err))
			continue
		}
		tally.Succeeded++
	}
	return tally
}

func (l *Loader) loadUsers(ctx context.Context, dump *Dump) Tally {
	return run(ctx, l, CollectionUsers, dump.Users, func(ctx context.Context, u User) error {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("username or password is empty")
		}
		hash, err := l.passwordHash(u.Password)
		if err != nil {
			return err
		}
		display := u.Name
		if display == "" {
			display = u.Username
		}
		created, err := l.targets.Users.Create(ctx, &models.User{
			Username:     u.Username,
			PasswordHash: hash,
			Role:         legacyRole(u.Role),
			DisplayName:  display,
		})
		if err != nil {
			return err
		}
		if !created {
			return errSkipped
		}
		return nil
	})
}

// passwordHash keeps values that are already bcrypt hashes.
func (l *Loader) passwordHash(password string) (string, error) {
	if _, err := bcrypt.Cost([]byte(password)); err == nil {
		return password, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

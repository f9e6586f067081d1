package legacy

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source fetches every document of a collection into dest, a pointer to a slice.
type Source interface {
	FindAll(ctx context.Context, collection string, dest interface{}) error
}

// MongoSource reads collections from a mongo database.
type MongoSource struct {
	db *mongo.Database
}

// Connect dials the legacy store and verifies it answers.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*MongoSource, func(context.Context) error, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSource{db: client.Database(database)}, client.Disconnect, nil
}

// FindAll implements Source.
func (s *MongoSource) FindAll(ctx context.Context, collection string, dest interface{}) error {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	if err := cursor.All(ctx, dest); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Reader builds a Dump from a Source.
type Reader struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewReader constructs a Reader.
func NewReader(source Source, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{source: source, logger: logger, now: time.Now}
}

// Read fetches all collections concurrently. Any failing collection aborts the dump.
func (r *Reader) Read(ctx context.Context, database string) (*Dump, error) {
	dump := &Dump{ExportedAt: r.now().UTC(), Database: database}
	targets := map[string]interface{}{
		CollectionStudents:        &dump.Students,
		CollectionTeachers:        &dump.Teachers,
		CollectionCourses:         &dump.Courses,
		CollectionClasses:         &dump.Classes,
		CollectionStudentStatuses: &dump.StudentStatuses,
		CollectionTeacherStatuses: &dump.TeacherStatuses,
		CollectionUsers:           &dump.Users,
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range Collections {
		name, dest := name, targets[name]
		g.Go(func() error {
			return r.source.FindAll(gctx, name, dest)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for name, count := range dump.Counts() {
		r.logger.Sugar().Infow("collection dumped", "collection", name, "documents", count)
	}
	return dump, nil
}

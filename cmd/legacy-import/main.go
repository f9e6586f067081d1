package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/legacy"
	"github.com/noah-isme/tutor-center-api/internal/repository"
	"github.com/noah-isme/tutor-center-api/pkg/config"
	"github.com/noah-isme/tutor-center-api/pkg/database"
	"github.com/noah-isme/tutor-center-api/pkg/logger"
)

const usage = `usage:
  legacy-import dump -out dump.json   read the legacy MongoDB into a JSON dump
  legacy-import load -in dump.json    insert a JSON dump into Postgres`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "dump":
		err = runDump(ctx, cfg, logr, os.Args[2:])
	case "load":
		err = runLoad(ctx, cfg, logr, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q\n%s", os.Args[1], usage)
	}
	if err != nil {
		logr.Sugar().Errorw("legacy import failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runDump(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	out := fs.String("out", "dump.json", "output file")
	uri := fs.String("uri", cfg.Legacy.MongoURI, "MongoDB connection string")
	dbName := fs.String("db", cfg.Legacy.MongoDatabase, "MongoDB database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	source, disconnect, err := legacy.Connect(ctx, *uri, *dbName, cfg.Legacy.Timeout)
	if err != nil {
		return err
	}
	defer disconnect(context.Background()) //nolint:errcheck

	dump, err := legacy.NewReader(source, logr).Read(ctx, *dbName)
	if err != nil {
		return err
	}

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := legacy.WriteDump(file, dump); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *out, err)
	}
	logr.Sugar().Infow("dump written", "path", *out, "collections", dump.Counts())
	return nil
}

func runLoad(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	in := fs.String("in", "dump.json", "dump file written by the dump command")
	concurrency := fs.Int("concurrency", cfg.Bulk.Concurrency, "parallel inserts per collection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	file, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("open %s: %w", *in, err)
	}
	dump, err := legacy.ReadDump(file)
	_ = file.Close()
	if err != nil {
		return err
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	loader := legacy.NewLoader(legacy.Targets{
		Students:        repository.NewStudentRepository(db),
		Teachers:        repository.NewTeacherRepository(db),
		Courses:         repository.NewCourseRepository(db),
		Classes:         repository.NewClassRepository(db),
		StudentStatuses: repository.NewStudentBillingStatusRepository(db),
		TeacherStatuses: repository.NewTeacherBillingStatusRepository(db),
		Users:           repository.NewUserRepository(db),
	}, *concurrency, logr)

	report, err := loader.Load(ctx, dump)
	for name, tally := range report {
		logr.Sugar().Infow("load summary", "collection", name, "succeeded", tally.Succeeded, "failed", tally.Failed, "skipped", tally.Skipped)
	}
	if err != nil {
		return err
	}
	var failed int
	for _, tally := range report {
		failed += tally.Failed
	}
	if failed > 0 {
		return errors.New("some legacy documents were rejected, see warnings above")
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-center-api/api/swagger"
	"github.com/noah-isme/tutor-center-api/internal/handler"
	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/repository"
	"github.com/noah-isme/tutor-center-api/internal/service"
	"github.com/noah-isme/tutor-center-api/pkg/cache"
	"github.com/noah-isme/tutor-center-api/pkg/config"
	"github.com/noah-isme/tutor-center-api/pkg/database"
	"github.com/noah-isme/tutor-center-api/pkg/export"
	"github.com/noah-isme/tutor-center-api/pkg/jobs"
	"github.com/noah-isme/tutor-center-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-center-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutor-center-api/pkg/storage"
)

// @title Tutor Center API
// @version 1.0.0
// @description Roster, billing, statements and revenue for a tuition center
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, db, logr)
	if err != nil {
		logr.Sugar().Fatalw("bootstrap failed", "error", err)
	}
	defer app.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

type application struct {
	router *gin.Engine
	close  func()
}

func build(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Billing.CacheTTL, logr, cacheRepo != nil)

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentStatusRepo := repository.NewStudentBillingStatusRepository(db)
	teacherStatusRepo := repository.NewTeacherBillingStatusRepository(db)
	jobRepo := repository.NewStatementJobRepository(db)
	userRepo := repository.NewUserRepository(db)

	bulk := service.BulkConfig{Concurrency: cfg.Bulk.Concurrency}
	studentSvc := service.NewStudentService(studentRepo, validate, cacheSvc, metrics, logr, bulk)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, cacheSvc, metrics, logr, bulk)
	courseSvc := service.NewCourseService(courseRepo, validate, cacheSvc, metrics, logr, bulk)
	classSvc := service.NewClassService(classRepo, validate, cacheSvc, metrics, logr, bulk)

	catalog := service.NewCatalog(studentRepo, teacherRepo, courseRepo, classRepo, metrics)
	billingSvc := service.NewBillingService(catalog, studentStatusRepo, teacherStatusRepo, cacheSvc, logr, service.BillingConfig{CacheTTL: cfg.Billing.CacheTTL})
	statusSvc := service.NewBillingStatusService(studentStatusRepo, teacherStatusRepo, validate, cacheSvc, logr)
	revenueSvc := service.NewRevenueService(catalog, cacheSvc, cfg.Statements.FontPath, cfg.Revenue.CacheTTL, logr)

	files, err := storage.NewLocalStorage(cfg.Statements.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("statement storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Statements.SignedURLSecret, cfg.Statements.SignedURLTTL)
	statementSvc := service.NewStatementService(catalog, export.NewStatementRenderer(cfg.Statements.FontPath), files, signer, metrics, service.StatementConfig{
		Organization:      cfg.Statements.OrganizationName,
		PaymentNote:       cfg.Statements.PaymentNote,
		APIPrefix:         cfg.APIPrefix,
		ResultTTL:         cfg.Statements.SignedURLTTL,
		RenderConcurrency: cfg.Statements.RenderConcurrency,
	}, logr)

	worker := service.NewStatementWorker(jobRepo, statementSvc, studentStatusRepo, cacheSvc, cfg.Statements.WorkerRetries, logr)
	queue := jobs.NewQueue("statements", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Statements.WorkerConcurrency,
		MaxRetries: cfg.Statements.WorkerRetries,
		JobTimeout: cfg.Statements.JobTimeout,
		OnGiveUp:   worker.GiveUp,
		Logger:     logr,
	})
	queue.Start(ctx)
	jobSvc := service.NewStatementJobService(jobRepo, queue, statementSvc, validate, logr, service.StatementJobConfig{
		ResultTTL:       cfg.Statements.SignedURLTTL,
		CleanupInterval: cfg.Statements.CleanupInterval,
	})
	jobSvc.RecoverPendingJobs(ctx)
	jobSvc.StartCleanup(ctx)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
	})
	if err := authSvc.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logr.Sugar().Warnw("admin seed skipped", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/docs"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, db).TrackQueue("statements", queue)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes{
		students:   handler.NewStudentHandler(studentSvc),
		teachers:   handler.NewTeacherHandler(teacherSvc),
		courses:    handler.NewCourseHandler(courseSvc),
		classes:    handler.NewClassHandler(classSvc),
		billing:    handler.NewBillingHandler(billingSvc, statusSvc),
		revenue:    handler.NewRevenueHandler(revenueSvc),
		statements: handler.NewStatementHandler(statementSvc, jobSvc),
		auth:       handler.NewAuthHandler(authSvc),
		health:     metricsHandler,
	}.register(r.Group(cfg.APIPrefix), authSvc)

	return &application{
		router: r,
		close: func() {
			queue.Stop()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}

type routes struct {
	students   *handler.StudentHandler
	teachers   *handler.TeacherHandler
	courses    *handler.CourseHandler
	classes    *handler.ClassHandler
	billing    *handler.BillingHandler
	revenue    *handler.RevenueHandler
	statements *handler.StatementHandler
	auth       *handler.AuthHandler
	health     *handler.MetricsHandler
}

func (rt routes) register(api *gin.RouterGroup, tokens middleware.TokenValidator) {
	api.GET("/health", rt.health.Health)
	api.POST("/auth/login", rt.auth.Login)

	// Signed tokens authorise archive downloads on their own.
	api.GET("/statements/download/:token", rt.statements.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	secured.GET("/auth/session", rt.auth.Session)
	secured.GET("/auth/users", adminOnly, rt.auth.Users)

	entity(secured, "/students", adminOnly, rt.students.List, rt.students.Get, rt.students.Create, rt.students.Update, rt.students.Delete, rt.students.BulkDelete, rt.students.Import)
	entity(secured, "/teachers", adminOnly, rt.teachers.List, rt.teachers.Get, rt.teachers.Create, rt.teachers.Update, rt.teachers.Delete, rt.teachers.BulkDelete, rt.teachers.Import)
	entity(secured, "/courses", adminOnly, rt.courses.List, rt.courses.Get, rt.courses.Create, rt.courses.Update, rt.courses.Delete, rt.courses.BulkDelete, rt.courses.Import)
	entity(secured, "/classes", adminOnly, rt.classes.List, rt.classes.Get, rt.classes.Create, rt.classes.Update, rt.classes.Delete, rt.classes.BulkDelete, rt.classes.Import)

	secured.GET("/billing/students", rt.billing.Students)
	secured.GET("/billing/students/export", rt.billing.ExportStudents)
	secured.GET("/billing/teachers", rt.billing.Teachers)
	secured.GET("/billing/teachers/export", rt.billing.ExportTeachers)
	secured.GET("/student-billing-status", rt.billing.StudentStatuses)
	secured.POST("/student-billing-status", rt.billing.UpsertStudentStatus)
	secured.GET("/teacher-billing-status", rt.billing.TeacherStatuses)
	secured.POST("/teacher-billing-status", rt.billing.UpsertTeacherStatus)

	secured.GET("/revenue", rt.revenue.Revenue)
	secured.GET("/revenue/export", rt.revenue.Export)

	secured.GET("/statements/students/:id", rt.statements.Student)
	secured.GET("/statements/teachers/:id", rt.statements.Teacher)
	secured.POST("/statements/jobs", rt.statements.CreateJob)
	secured.GET("/statements/jobs/:id", rt.statements.JobStatus)
}

func entity(group *gin.RouterGroup, path string, adminOnly gin.HandlerFunc, list, get, create, update, remove, bulkDelete, importCSV gin.HandlerFunc) {
	g := group.Group(path)
	g.GET("", list)
	g.POST("", create)
	g.POST("/import", importCSV)
	g.POST("/bulk-delete", adminOnly, bulkDelete)
	g.GET("/:id", get)
	g.PUT("/:id", update)
	g.DELETE("/:id", remove)
}

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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutorhub-api/api/swagger"
	"github.com/noah-isme/tutorhub-api/internal/handler"
	"github.com/noah-isme/tutorhub-api/internal/middleware"
	"github.com/noah-isme/tutorhub-api/internal/repository"
	"github.com/noah-isme/tutorhub-api/internal/service"
	"github.com/noah-isme/tutorhub-api/pkg/cache"
	"github.com/noah-isme/tutorhub-api/pkg/config"
	"github.com/noah-isme/tutorhub-api/pkg/database"
	"github.com/noah-isme/tutorhub-api/pkg/export"
	"github.com/noah-isme/tutorhub-api/pkg/logger"
)

// @title TutorHub API
// @version 1.0.0
// @description Tutoring center backend: rosters, tasks, routines, questions and test results
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Strings("files", applied))
	}

	redisClient := connectRedis(ctx, cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(cfg, db, redisClient, logr)

	if cfg.Routine.SchedulerEnabled {
		app.scheduler.Start(ctx)
		defer app.scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
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
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// connectRedis returns nil when the dashboard cache is off or Redis is unreachable; the API
// then serves dashboards uncached.
func connectRedis(ctx context.Context, cfg *config.Config, logr *zap.Logger) *redis.Client {
	if !cfg.Dashboard.CacheEnabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		return nil
	}
	return client
}

type app struct {
	users     *repository.UserRepository
	metrics   *service.MetricsService
	auth      middleware.TokenValidator
	scheduler *service.RoutineScheduler

	authHandler       *handler.AuthHandler
	metricsHandler    *handler.MetricsHandler
	teacherHandler    *handler.TeacherHandler
	studentHandler    *handler.StudentHandler
	parentHandler     *handler.ParentHandler
	curriculumHandler *handler.CurriculumHandler
	progressHandler   *handler.ProgressHandler
	taskHandler       *handler.TaskHandler
	extensionHandler  *handler.ExtensionHandler
	routineHandler    *handler.RoutineHandler
	questionHandler   *handler.QuestionHandler
	resultHandler     *handler.TestResultHandler
	dashboardHandler  *handler.DashboardHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *app {
	loc := cfg.Location()
	validate := validator.New()

	users := repository.NewUserRepository(db)
	teachers := repository.NewTeacherRepository(db)
	students := repository.NewStudentRepository(db)
	parents := repository.NewParentRepository(db)
	classes := repository.NewClassRepository(db)
	subjects := repository.NewSubjectRepository(db)
	progress := repository.NewProgressRepository(db)
	tasks := repository.NewTaskRepository(db)
	extensions := repository.NewExtensionRepository(db)
	routines := repository.NewRoutineRepository(db)
	questions := repository.NewQuestionRepository(db)
	results := repository.NewTestResultRepository(db)

	metrics := service.NewMetricsService()
	var cacheStore service.CacheStore
	var redisCache *repository.RedisCache
	if redisClient != nil {
		redisCache = repository.NewRedisCache(redisClient, cfg.Redis.KeyPrefix)
		cacheStore = redisCache
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, cfg.Dashboard.CacheTTL, logr)

	access := service.NewAccessPolicy(students, parents)
	dashboards := service.NewDashboardService(service.DashboardServiceParams{
		Tasks:      tasks,
		Students:   students,
		Extensions: extensions,
		Questions:  questions,
		Results:    results,
		Progress:   progress,
		Cache:      cacheSvc,
		Logger:     logr,
		Config:     service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL, Location: loc},
	})

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		Audience:           cfg.JWT.Audience,
		SingleSession:      cfg.JWT.SingleSession,
	})
	teacherSvc := service.NewTeacherService(teachers, users, validate, logr)
	studentSvc := service.NewStudentService(students, classes, users, access, validate, logr)
	parentSvc := service.NewParentService(parents, users, access, validate, logr)
	curriculumSvc := service.NewCurriculumService(classes, subjects, validate, logr)
	progressSvc := service.NewProgressService(progress, subjects, access, validate, logr)
	taskSvc := service.NewTaskService(service.TaskServiceParams{
		Repo:       tasks,
		Extensions: extensions,
		Access:     access,
		Audit:      users,
		Dashboards: dashboards,
		Metrics:    metrics,
		Validator:  validate,
		Logger:     logr,
		Location:   loc,
	})
	extensionSvc := service.NewExtensionService(extensions, tasks, users, dashboards, validate, logr, loc)
	routineSvc := service.NewRoutineService(routines, access, users, dashboards, metrics, validate, logr, service.RoutineConfig{
		DefaultDuration: cfg.Routine.DefaultDuration,
		MatchMonthly:    cfg.Routine.MatchMonthly,
		Location:        loc,
	})
	questionSvc := service.NewQuestionService(questions, access, dashboards, validate, logr)
	resultSvc := service.NewTestResultService(results, access, service.ExportRenderers{
		CSV:  export.NewCSVExporter(export.WithBOM()),
		XLSX: export.NewXLSXExporter("Test results"),
		PDF:  export.NewPDFExporter("TutorHub"),
	}, dashboards, validate, logr, loc)

	checks := []handler.ReadinessCheck{{Name: "database", Check: db.PingContext}}
	if redisCache != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: redisCache.Ping})
	}

	return &app{
		users:     users,
		metrics:   metrics,
		auth:      authSvc,
		scheduler: service.NewRoutineScheduler(routineSvc, service.RoutineSchedulerConfig{Interval: cfg.Routine.Interval, Workers: cfg.Routine.Workers, Location: loc, Logger: logr}),

		authHandler:       handler.NewAuthHandler(authSvc),
		metricsHandler:    handler.NewMetricsHandler(metrics, checks...),
		teacherHandler:    handler.NewTeacherHandler(teacherSvc),
		studentHandler:    handler.NewStudentHandler(studentSvc),
		parentHandler:     handler.NewParentHandler(parentSvc),
		curriculumHandler: handler.NewCurriculumHandler(curriculumSvc),
		progressHandler:   handler.NewProgressHandler(progressSvc),
		taskHandler:       handler.NewTaskHandler(taskSvc, extensionSvc, loc),
		extensionHandler:  handler.NewExtensionHandler(extensionSvc),
		routineHandler:    handler.NewRoutineHandler(routineSvc),
		questionHandler:   handler.NewQuestionHandler(questionSvc),
		resultHandler:     handler.NewTestResultHandler(resultSvc),
		dashboardHandler:  handler.NewDashboardHandler(dashboards),
	}
}

package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorhub-api/internal/middleware"
	"github.com/noah-isme/tutorhub-api/internal/models"
	"github.com/noah-isme/tutorhub-api/pkg/config"
	"github.com/noah-isme/tutorhub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutorhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutorhub-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", a.metricsHandler.Health)
	r.GET("/ready", a.metricsHandler.Ready)
	r.GET("/metrics", a.metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", a.authHandler.Login)
	api.POST("/auth/refresh", a.authHandler.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(a.auth))

	admin := middleware.RequireRoles(models.RoleAdmin)
	teacher := middleware.RequireRoles(models.RoleTeacher)
	student := middleware.RequireRoles(models.RoleStudent)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent)
	created := func(resource string) gin.HandlerFunc {
		return middleware.Audit(a.users, logr, models.AuditActionUserCreate, resource)
	}

	secured.GET("/auth/me", a.authHandler.Me)
	secured.POST("/auth/logout", a.authHandler.Logout)
	secured.POST("/auth/change-password", a.authHandler.ChangePassword)

	secured.GET("/teachers", admin, a.teacherHandler.List)
	secured.POST("/teachers", admin, created("teacher"), a.teacherHandler.Create)
	secured.GET("/teachers/:id", middleware.RequireSelfOrRoles("id", models.RoleAdmin), a.teacherHandler.Get)
	secured.PUT("/teachers/:id", admin, a.teacherHandler.Update)

	secured.GET("/students", staff, a.studentHandler.List)
	secured.POST("/students", teacher, created("student"), a.studentHandler.Create)
	secured.GET("/students/:id", anyRole, a.studentHandler.Get)
	secured.PUT("/students/:id", staff, a.studentHandler.Update)
	secured.GET("/students/:id/subjects", anyRole, a.progressHandler.ListSubjects)
	secured.POST("/students/:id/subjects", teacher, a.progressHandler.AssignSubject)
	secured.DELETE("/students/:id/subjects/:subjectId", teacher, a.progressHandler.UnassignSubject)
	secured.PUT("/students/:id/progress", teacher, a.progressHandler.SetProgress)
	secured.GET("/students/:id/progress", anyRole, a.progressHandler.Report)

	secured.GET("/parents", staff, a.parentHandler.List)
	secured.POST("/parents", teacher, created("parent"), a.parentHandler.Create)

	secured.GET("/classes", anyRole, a.curriculumHandler.ListClasses)
	secured.POST("/classes", admin, a.curriculumHandler.CreateClass)
	secured.GET("/classes/:id/subjects", anyRole, a.curriculumHandler.ListSubjects)
	secured.POST("/classes/:id/subjects", admin, a.curriculumHandler.CreateSubject)
	secured.GET("/subjects/:id/topics", anyRole, a.curriculumHandler.ListTopics)
	secured.POST("/subjects/:id/topics", admin, a.curriculumHandler.CreateTopic)

	secured.GET("/tasks", anyRole, a.taskHandler.List)
	secured.POST("/tasks", teacher, a.taskHandler.Create)
	secured.GET("/tasks/:id", anyRole, a.taskHandler.Get)
	secured.PUT("/tasks/:id", teacher, a.taskHandler.Update)
	secured.DELETE("/tasks/:id", teacher, a.taskHandler.Delete)
	secured.POST("/tasks/:id/complete", student, a.taskHandler.Complete)
	secured.POST("/tasks/:id/extension-requests", student, a.taskHandler.RequestExtension)

	secured.GET("/extension-requests", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent), a.extensionHandler.List)
	secured.POST("/extension-requests/:id/respond", teacher, a.extensionHandler.Respond)

	secured.GET("/routine-tasks", staff, a.routineHandler.List)
	secured.POST("/routine-tasks", teacher, a.routineHandler.Create)
	secured.PUT("/routine-tasks/:id", teacher, a.routineHandler.Update)
	secured.DELETE("/routine-tasks/:id", teacher, a.routineHandler.Delete)
	secured.POST("/auto-assign-tasks", staff, a.routineHandler.Sweep)

	secured.GET("/questions", anyRole, a.questionHandler.List)
	secured.POST("/questions", student, a.questionHandler.Create)
	secured.GET("/questions/:id", anyRole, a.questionHandler.Get)
	secured.POST("/questions/:id/responses", anyRole, a.questionHandler.Respond)

	secured.GET("/test-results", anyRole, a.resultHandler.List)
	secured.POST("/test-results", teacher, a.resultHandler.Create)
	secured.GET("/test-results/export", anyRole, a.resultHandler.Export)

	secured.GET("/dashboard/teacher", staff, a.dashboardHandler.Teacher)
	secured.GET("/dashboard/student", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent), a.dashboardHandler.Student)

	return r
}

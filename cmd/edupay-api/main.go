package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/haperez86/EduPay/api/swagger"
	"github.com/haperez86/EduPay/internal/handler"
	"github.com/haperez86/EduPay/internal/middleware"
	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/repository"
	"github.com/haperez86/EduPay/internal/service"
	"github.com/haperez86/EduPay/pkg/cache"
	"github.com/haperez86/EduPay/pkg/config"
	"github.com/haperez86/EduPay/pkg/database"
	"github.com/haperez86/EduPay/pkg/jobs"
	"github.com/haperez86/EduPay/pkg/logger"
	corsmiddleware "github.com/haperez86/EduPay/pkg/middleware/cors"
	reqidmiddleware "github.com/haperez86/EduPay/pkg/middleware/requestid"
)

// @title EduPay API
// @version 1.0.0
// @description Tuition billing ledger for driving schools
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

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	app := buildApp(cfg, db, redisClient, loc, logr)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Reconcile.Enabled {
		app.queue.Start(rootCtx)
		if err := app.reconciler.Start(); err != nil {
			logr.Sugar().Fatalw("failed to schedule reconciliation", "error", err)
		}
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server shutdown", zap.Error(err))
	}
	if cfg.Reconcile.Enabled {
		app.reconciler.Stop()
		app.queue.Stop()
	}
	if err := app.cacheRepo.Close(); err != nil {
		logr.Warn("redis close", zap.Error(err))
	}
}

type application struct {
	router     *gin.Engine
	queue      *jobs.Queue
	reconciler *service.ReconciliationService
	cacheRepo  *repository.CacheRepository
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, loc *time.Location, logr *zap.Logger) *application {
	validate := validator.New()
	metrics := service.NewMetricsService()

	branchRepo := repository.NewBranchRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	financialRepo := repository.NewFinancialRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})

	payments := service.NewPaymentService(ledgerRepo, paymentRepo, enrollmentRepo, cacheSvc, metrics, validate, logr)
	queries := service.NewLedgerQueryService(financialRepo, enrollmentRepo, cacheSvc, service.LedgerQueryConfig{CacheTTL: cfg.Dashboard.CacheTTL, Location: loc}, logr)
	exports := service.NewExportService(queries, nil, nil, loc, logr)
	enrollments := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, branchRepo, cacheSvc, loc, validate, logr)
	branches := service.NewBranchService(branchRepo, validate, logr)
	students := service.NewStudentService(studentRepo, branchRepo, cacheSvc, validate, logr)
	courses := service.NewCourseService(courseRepo, branchRepo, validate, logr)

	reconciler := service.NewReconciliationService(financialRepo, metrics, service.ReconciliationConfig{Schedule: cfg.Reconcile.Schedule}, logr)
	queue := jobs.NewQueue("reconcile", reconciler.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Reconcile.Workers,
		MaxRetries: cfg.Reconcile.MaxRetries,
		Logger:     logr,
	})
	if cfg.Reconcile.Enabled {
		reconciler.AttachQueue(queue)
	}

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
		"postgres": db,
		"redis":    cacheRepo,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokens))
	studentHandler := handler.NewStudentHandler(students)
	api.GET("/students/directory", studentHandler.Directory)
	staff := api.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	registerRoutes(staff, routeHandlers{
		payments:       handler.NewPaymentHandler(payments, queries, exports),
		financial:      handler.NewFinancialHandler(queries),
		reconciliation: handler.NewReconciliationHandler(reconciler),
		enrollments:    handler.NewEnrollmentHandler(enrollments),
		branches:       handler.NewBranchHandler(branches),
		students:       studentHandler,
		courses:        handler.NewCourseHandler(courses),
	}, auditRepo, logr)

	return &application{router: r, queue: queue, reconciler: reconciler, cacheRepo: cacheRepo}
}

type routeHandlers struct {
	payments       *handler.PaymentHandler
	financial      *handler.FinancialHandler
	reconciliation *handler.ReconciliationHandler
	enrollments    *handler.EnrollmentHandler
	branches       *handler.BranchHandler
	students       *handler.StudentHandler
	courses        *handler.CourseHandler
}

func registerRoutes(g *gin.RouterGroup, h routeHandlers, audit *repository.AuditRepository, logr *zap.Logger) {
	audited := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(audit, logr, action, resource)
	}

	payments := g.Group("/payments")
	payments.POST("", audited(models.AuditActionPaymentRegister, "payment"), h.payments.Register)
	payments.GET("", h.payments.List)
	payments.GET("/enrollment/:enrollmentId", h.payments.ListByEnrollment)
	payments.GET("/monthly-income", h.payments.MonthlyIncome)
	payments.GET("/monthly-income/export", h.payments.ExportMonthlyIncome)
	payments.DELETE("/:id", audited(models.AuditActionPaymentVoid, "payment"), h.payments.Cancel)
	g.GET("/payment-methods", h.payments.Methods)

	admin := g.Group("/admin")
	admin.GET("/dashboard", h.financial.Dashboard)
	admin.GET("/students-with-debt", h.financial.StudentsWithDebt)
	admin.GET("/enrollments/:id/financial-status", h.financial.EnrollmentStatus)
	admin.GET("/courses/:id/financial-summary", h.financial.CourseSummary)

	g.GET("/reconciliation", h.financial.Reconciliation)
	g.POST("/reconciliation/runs", h.reconciliation.Trigger)
	g.GET("/reconciliation/runs/latest", h.reconciliation.Last)

	enrollments := g.Group("/enrollments")
	enrollments.GET("", h.enrollments.List)
	enrollments.POST("", audited(models.AuditActionEnrollmentCreate, "enrollment"), h.enrollments.Create)
	enrollments.GET("/:id", h.enrollments.Get)
	enrollments.GET("/:id/summary", h.enrollments.Summary)
	enrollments.DELETE("/:id", audited(models.AuditActionEnrollmentDisable, "enrollment"), h.enrollments.Deactivate)

	branches := g.Group("/branches")
	branches.GET("", h.branches.List)
	branches.POST("", audited(models.AuditActionBranchCreate, "branch"), h.branches.Create)
	branches.PUT("/:id", audited(models.AuditActionBranchUpdate, "branch"), h.branches.Update)
	branches.DELETE("/:id", audited(models.AuditActionBranchDisable, "branch"), h.branches.Deactivate)

	students := g.Group("/students")
	students.GET("", h.students.List)
	students.POST("", audited(models.AuditActionStudentCreate, "student"), h.students.Create)
	students.GET("/:id", h.students.Get)
	students.PUT("/:id", audited(models.AuditActionStudentUpdate, "student"), h.students.Update)
	students.PATCH("/:id/toggle-status", audited(models.AuditActionStudentToggle, "student"), h.students.ToggleStatus)
	students.DELETE("/:id", audited(models.AuditActionStudentDelete, "student"), h.students.Delete)

	courses := g.Group("/courses")
	courses.GET("", h.courses.List)
	courses.POST("", audited(models.AuditActionCourseCreate, "course"), h.courses.Create)
	courses.GET("/:id", h.courses.Get)
	courses.PUT("/:id", audited(models.AuditActionCourseUpdate, "course"), h.courses.Update)
	courses.PATCH("/:id/toggle-status", audited(models.AuditActionCourseToggle, "course"), h.courses.ToggleStatus)
	courses.DELETE("/:id", audited(models.AuditActionCourseDisable, "course"), h.courses.Deactivate)
}

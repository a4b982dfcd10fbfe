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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vidyalink/vidyalink-api/api/swagger"
	"github.com/vidyalink/vidyalink-api/internal/handler"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	"github.com/vidyalink/vidyalink-api/internal/service"
	"github.com/vidyalink/vidyalink-api/pkg/cache"
	"github.com/vidyalink/vidyalink-api/pkg/config"
	"github.com/vidyalink/vidyalink-api/pkg/database"
	"github.com/vidyalink/vidyalink-api/pkg/jobs"
	"github.com/vidyalink/vidyalink-api/pkg/logger"
	corsmiddleware "github.com/vidyalink/vidyalink-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vidyalink/vidyalink-api/pkg/middleware/requestid"
	"github.com/vidyalink/vidyalink-api/pkg/storage"
)

// @title VidyaLink API
// @version 1.0.0
// @description Multi-tenant school management backend with a fee lifecycle engine
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, summary caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	frequencyRepo := repository.NewFeeFrequencyRepository(db)
	categoryRepo := repository.NewFeeCategoryRepository(db)
	structureRepo := repository.NewFeeStructureRepository(db)
	assignmentRepo := repository.NewFeeAssignmentRepository(db)
	paymentRepo := repository.NewFeePaymentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	notificationService := service.NewNotificationService(notificationRepo, studentRepo, service.LogSender{Logger: logr}, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	catalogService := service.NewFeeCatalogService(frequencyRepo, categoryRepo, validate, logr)
	structureService := service.NewFeeStructureService(structureRepo, categoryRepo, frequencyRepo, cfg.Fees.DefaultDueDay, validate, logr)
	assignmentService := service.NewFeeAssignmentService(assignmentRepo, structureRepo, studentRepo, validate, logr)
	paymentService := service.NewFeePaymentService(paymentRepo, notificationService, cfg.Fees.ReceiptPrefix, validate, logr)
	if archive, err := storage.NewLocalStorage(cfg.Fees.ExportDir); err != nil {
		logr.Sugar().Warnw("receipt archive unavailable, signed links disabled", "error", err)
	} else {
		paymentService.WithReceiptArchive(archive, storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Fees.ReceiptLinkTTL))
	}
	summaryService := service.NewFeeSummaryService(assignmentRepo, paymentRepo, cacheRepo, cfg.Fees.SummaryCacheTTL, cfg.Fees.RecentPaymentLimit, logr)

	tenantService := service.NewTenantService(tenantRepo, catalogService, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	classService := service.NewClassService(classRepo, assignmentService, validate, logr)
	studentService := service.NewStudentService(studentRepo, assignmentService, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, validate, logr)
	homeworkService := service.NewHomeworkService(homeworkRepo, notificationService, validate, logr)
	noteService := service.NewNoteService(noteRepo, validate, logr)
	leaveService := service.NewLeaveService(leaveRepo, studentRepo, notificationService, validate, logr)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	if cfg.Notifications.Enabled {
		notificationService.Start(queueCtx)
		defer notificationService.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	metricsHandler := handler.NewMetricsHandler(metricsService)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/snapshot", metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Tenants:       handler.NewTenantHandler(tenantService),
		Users:         handler.NewUserHandler(userService),
		Classes:       handler.NewClassHandler(classService),
		Students:      handler.NewStudentHandler(studentService),
		Attendance:    handler.NewAttendanceHandler(attendanceService, studentService),
		Homework:      handler.NewHomeworkHandler(homeworkService),
		Notes:         handler.NewNoteHandler(noteService),
		Leave:         handler.NewLeaveHandler(leaveService),
		Notifications: handler.NewNotificationHandler(notificationService),
		FeeCatalog:    handler.NewFeeCatalogHandler(catalogService),
		FeeStructures: handler.NewFeeStructureHandler(structureService),
		Fees:          handler.NewFeeHandler(assignmentService, paymentService, summaryService, studentService),
		Metrics:       metricsHandler,
	}, handler.RouterDeps{
		Auth:      authService,
		Metrics:   metricsService,
		AuditRepo: userRepo,
		APIPrefix: cfg.APIPrefix,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("closing redis failed", "error", err)
	}
}

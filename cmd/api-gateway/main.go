package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/pondok-psb-api/api/swagger"
	"github.com/noah-isme/pondok-psb-api/internal/handler"
	"github.com/noah-isme/pondok-psb-api/internal/middleware"
	"github.com/noah-isme/pondok-psb-api/internal/models"
	"github.com/noah-isme/pondok-psb-api/internal/repository"
	"github.com/noah-isme/pondok-psb-api/internal/service"
	"github.com/noah-isme/pondok-psb-api/pkg/cache"
	"github.com/noah-isme/pondok-psb-api/pkg/config"
	"github.com/noah-isme/pondok-psb-api/pkg/database"
	"github.com/noah-isme/pondok-psb-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pondok-psb-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pondok-psb-api/pkg/middleware/requestid"
	"github.com/noah-isme/pondok-psb-api/pkg/storage"
)

// @title Pondok PSB API
// @version 1.0.0
// @description Boarding school admissions workflow (PSB) service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Admissions.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(client, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Admissions.CacheTTL, logr, true)
		}
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	sequenceRepo := repository.NewSequenceRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	applicantRepo := repository.NewApplicantRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "pondok-psb-api",
	})
	periodSvc := service.NewPeriodService(periodRepo, cacheSvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(studentRepo, applicantRepo, cacheSvc, logr)
	admissionSvc := service.NewAdmissionService(applicantRepo, periodRepo, sequenceRepo, enrollmentSvc, cacheSvc, metrics, nil, logr)
	exportSvc := service.NewExportService(applicantRepo, nil, nil, cfg.Admissions.ExportLimit, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	periodHandler := handler.NewPeriodHandler(periodSvc)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc, exportSvc, uploadStore, signer, cfg.Uploads.MaxFileSizeBytes)
	studentHandler := handler.NewStudentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	// public endpoints: prospective applicants register and upload their
	// proof without staff credentials
	api.GET("/periods/active", periodHandler.Active)
	api.POST("/applicants", admissionHandler.Register)
	api.POST("/applicants/:id/payment-proof", admissionHandler.UploadPaymentProof)
	api.GET("/applicants/payment-proof", admissionHandler.DownloadPaymentProof)

	staff := api.Group("", middleware.JWT(authSvc))
	{
		periods := staff.Group("/periods", middleware.RequireRoles(models.RoleAdmin))
		{
			periods.GET("", periodHandler.List)
			periods.GET("/:id", periodHandler.Get)
			periods.POST("", middleware.Audit(userRepo, models.AuditActionPeriodWrite, "periods"), periodHandler.Create)
			periods.PUT("/:id", middleware.Audit(userRepo, models.AuditActionPeriodWrite, "periods"), periodHandler.Update)
			periods.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionPeriodWrite, "periods"), periodHandler.Delete)
		}

		applicants := staff.Group("/applicants", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
		{
			applicants.GET("", admissionHandler.List)
			applicants.GET("/export", admissionHandler.Export)
			applicants.GET("/:id", admissionHandler.Get)
			applicants.POST("/:id/verify-payment", middleware.Audit(userRepo, models.AuditActionPaymentVerify, "applicants"), admissionHandler.VerifyPayment)
			applicants.PUT("/:id/status", middleware.Audit(userRepo, models.AuditActionStatusChange, "applicants"), admissionHandler.SetStatus)
			applicants.POST("/:id/assign", middleware.Audit(userRepo, models.AuditActionAssignment, "applicants"), admissionHandler.Assign)
			applicants.POST("/:id/decline", middleware.Audit(userRepo, models.AuditActionStatusChange, "applicants"), admissionHandler.Decline)
			applicants.POST("/:id/verify-reregistration", middleware.Audit(userRepo, models.AuditActionReregVerify, "applicants"), admissionHandler.VerifyReregistration)
			applicants.POST("/:id/convert", middleware.Audit(userRepo, models.AuditActionConversion, "applicants"), studentHandler.Convert)
		}

		students := staff.Group("/students", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
		{
			students.GET("", studentHandler.List)
			students.GET("/:id", studentHandler.Get)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

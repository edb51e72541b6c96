package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"equilibra/internal/ai"
	"equilibra/internal/auth"
	"equilibra/internal/config"
	"equilibra/internal/github"
	"equilibra/internal/handler"
	"equilibra/internal/logger"
	"equilibra/internal/middleware"
	"equilibra/internal/model"
	"equilibra/internal/recall"
	"equilibra/internal/repository"
	"equilibra/internal/service"
	"equilibra/internal/snowflake"
	"equilibra/internal/telegram"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config

	radar *service.Radar
}

func Init(cfg *config.Config) (*Server, error) {
	logger.Init(cfg)

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)
	// TranslateError turns driver duplicate-key failures into
	// gorm.ErrDuplicatedKey, which the KPI idempotency path depends on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBPoolMin)
	sqlDB.SetMaxOpenConns(cfg.DBPoolMax)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Bucket{},
		&model.Task{},
		&model.Alert{},
		&model.Activity{},
		&model.Meeting{},
		&model.ScoreEvent{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	log.Info("connected to database")

	ids, err := snowflake.New(cfg.SnowflakeWorkerID)
	if err != nil {
		return nil, fmt.Errorf("id generator: %w", err)
	}

	// External clients
	gitClient, err := github.New(cfg.GHAppID, cfg.GHAppPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("github app client: %w", err)
	}
	judge := ai.NewJudge(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.AITimeout)
	notifier, err := telegram.NewNotifier(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	recallClient := recall.NewClient(cfg.RecallAPIKey, cfg.RecallAPIBaseURL)

	// Repositories
	userRepo := repository.NewUserRepository(db, ids)
	projectRepo := repository.NewProjectRepository(db, ids)
	bucketRepo := repository.NewBucketRepository(db, ids)
	taskRepo := repository.NewTaskRepository(db, ids)
	memberRepo := repository.NewMemberRepository(db, ids)
	activityRepo := repository.NewActivityRepository(db, ids)
	alertRepo := repository.NewAlertRepository(db, ids)
	meetingRepo := repository.NewMeetingRepository(db, ids)

	// Services
	evaluator := service.NewEvaluator(gitClient, judge)
	taskSync := service.NewTaskSync(db, ids, gitClient)
	kpi := service.NewKPI(db, ids)
	branchSync := service.NewBranchSync(taskRepo, bucketRepo, projectRepo, userRepo, gitClient, cfg.GHAppInstallationID)
	dispatcher := service.NewDispatcher(projectRepo, taskRepo, bucketRepo, activityRepo, evaluator, taskSync, kpi)
	meetings := service.NewMeetings(meetingRepo, alertRepo, taskRepo, judge, recallClient, ids)
	radar := service.NewRadar(
		bucketRepo, taskRepo, memberRepo, alertRepo, userRepo, notifier, ids,
		cfg.StagnationInterval, cfg.StagnationThreshold,
	)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiryHours)

	// Handlers
	webhookHandler := handler.NewWebhookHandler(cfg.GHWebhookSecret, cfg.RecallWebhookSecret, dispatcher, meetings)
	authHandler := handler.NewAuthHandler(userRepo, issuer,
		cfg.GHOAuthClientID, cfg.GHOAuthClientSecret, cfg.GHOAuthRedirectURI, cfg.FrontendURL)
	telegramHandler := handler.NewTelegramHandler(userRepo, notifier, cfg.TelegramWebhookSecret)
	projectHandler := handler.NewProjectHandler(projectRepo, bucketRepo, memberRepo, activityRepo)
	bucketHandler := handler.NewBucketHandler(bucketRepo, projectRepo, taskRepo)
	taskHandler := handler.NewTaskHandler(taskRepo, bucketRepo, activityRepo, branchSync, meetings)
	memberHandler := handler.NewMemberHandler(memberRepo, userRepo, projectRepo)
	alertHandler := handler.NewAlertHandler(alertRepo)
	meetingHandler := handler.NewMeetingHandler(meetings)

	r := gin.Default()

	// Public routes
	r.POST("/webhooks/github", webhookHandler.GitHub)
	r.POST("/webhooks/recall", webhookHandler.Recall)
	r.POST("/webhooks/telegram", telegramHandler.Webhook)
	r.GET("/auth/github/login", authHandler.Login)
	r.GET("/auth/github/callback", authHandler.Callback)

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(issuer))
	{
		authorized.GET("/auth/me", authHandler.Me)
		authorized.POST("/auth/logout", authHandler.Logout)

		authorized.POST("/projects", projectHandler.Create)
		authorized.GET("/projects", projectHandler.GetAll)
		authorized.GET("/projects/:id", projectHandler.GetByID)
		authorized.PUT("/projects/:id", projectHandler.Update)
		authorized.DELETE("/projects/:id", projectHandler.Delete)
		authorized.GET("/projects/:id/activity", projectHandler.GetActivity)

		authorized.POST("/buckets", bucketHandler.Create)
		authorized.GET("/projects/:id/buckets", bucketHandler.GetByProject)
		authorized.PUT("/buckets/:id", bucketHandler.Update)
		authorized.DELETE("/buckets/:id", bucketHandler.Delete)
		authorized.POST("/projects/:id/buckets/reorder", bucketHandler.Reorder)

		authorized.POST("/tasks", taskHandler.Create)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.GET("/buckets/:id/tasks", taskHandler.GetByBucket)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/move", taskHandler.Move)
		authorized.POST("/buckets/:id/tasks/reorder", taskHandler.Reorder)
		authorized.POST("/tasks/confirm", taskHandler.Confirm)

		authorized.POST("/projects/:id/members", memberHandler.Add)
		authorized.GET("/projects/:id/members", memberHandler.GetByProject)
		authorized.PUT("/projects/:id/members/:user_id", memberHandler.Update)
		authorized.DELETE("/projects/:id/members/:user_id", memberHandler.Remove)

		authorized.GET("/alerts", alertHandler.GetMine)
		authorized.POST("/alerts/:id/resolve", alertHandler.Resolve)

		authorized.POST("/projects/:id/meetings/analyze", meetingHandler.Analyze)
		authorized.GET("/projects/:id/meetings", meetingHandler.GetByProject)
		authorized.POST("/projects/:id/meetings/bot", meetingHandler.InviteBot)
	}

	return &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
		radar:  radar,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	radarCtx, stopRadar := context.WithCancel(context.Background())
	go s.radar.Run(radarCtx)

	go func() {
		log.WithField("port", s.Config.ServerPort).Info("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")
	stopRadar()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}

	log.Info("server exited")
}

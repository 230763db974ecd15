package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bryanwahyu/plateguard/internal/application"
	appai "github.com/bryanwahyu/plateguard/internal/application/ai"
	appmedia "github.com/bryanwahyu/plateguard/internal/application/media"
	"github.com/bryanwahyu/plateguard/internal/config"
	domai "github.com/bryanwahyu/plateguard/internal/domain/ai"
	"github.com/bryanwahyu/plateguard/internal/domain/analyst"
	"github.com/bryanwahyu/plateguard/internal/domain/detections"
	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
	"github.com/bryanwahyu/plateguard/internal/domain/mediaerrors"
	openaiClient "github.com/bryanwahyu/plateguard/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/plateguard/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/plateguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/plateguard/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/plateguard/internal/infra/storage"
	"github.com/bryanwahyu/plateguard/internal/infra/vision"
	"github.com/bryanwahyu/plateguard/internal/infra/vision/rekognition"
	"github.com/bryanwahyu/plateguard/internal/infra/ws"
	"github.com/bryanwahyu/plateguard/internal/logger"
	"github.com/bryanwahyu/plateguard/internal/middleware"
)

func main() {
	// .env is optional, dipakai buat local dev
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(os.Getenv("DEBUG") == "true")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	// connect database (mysql default, postgres optional)
	var (
		mediaRepo     domain.Repository
		detectionRepo detections.Repository
		analystRepo   analyst.Repository
		errorRepo     mediaerrors.Repository
		db            *sql.DB
	)
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			zlog.Fatal("postgres connect error", zap.Error(err))
		}
		mediaRepo = postgresp.NewMediaRepository(pg)
		detectionRepo = postgresp.NewDetectionRepository(pg)
		analystRepo = postgresp.NewAnalystRepository(pg)
		errorRepo = postgresp.NewProcessErrorRepository(pg)
		db = pg
	default:
		my, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			zlog.Fatal("mysql connect error", zap.Error(err))
		}
		mediaRepo = mysqlp.NewMediaRepository(my)
		detectionRepo = mysqlp.NewDetectionRepository(my)
		analystRepo = mysqlp.NewAnalystRepository(my)
		errorRepo = mysqlp.NewProcessErrorRepository(my)
		db = my
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		zlog.Fatal("minio init error", zap.Error(err))
	}

	// init redactor engine
	var redactor domain.Redactor
	switch cfg.Detector.Engine {
	case "rekognition":
		rekClient, err := rekognition.NewClient(ctx,
			cfg.AWS.Region, cfg.AWS.AccessKey, cfg.AWS.SecretKey)
		if err != nil {
			zlog.Fatal("rekognition init error", zap.Error(err))
		}
		redactor = rekognition.NewRedactor(rekClient, zlog)
	default:
		dn, err := vision.NewDarknetRedactor(vision.Config{
			ConfigPath:   cfg.Detector.ConfigPath,
			WeightsPath:  cfg.Detector.WeightsPath,
			Confidence:   cfg.Detector.Confidence,
			NMSThreshold: cfg.Detector.NMSThreshold,
			InputSize:    cfg.Detector.InputSize,
			BlurKernel:   cfg.Detector.BlurKernel,
		}, zlog)
		if err != nil {
			zlog.Fatal("darknet init error", zap.Error(err))
		}
		redactor = dn
	}

	// events hub
	hub := ws.NewHub(zlog)
	go hub.Run()

	// init services
	mediaSvc := &appmedia.Service{
		Repo:       mediaRepo,
		Detections: detectionRepo,
		Errors:     errorRepo,
		Redactor:   redactor,
		Artifacts:  store,
		Notifier:   hub,
		Clock:      application.SystemClock{},
		Log:        zlog,
		WorkDir:    cfg.Detector.WorkDir,
		Engine:     domain.Engine(cfg.Detector.Engine),
	}

	var aiClient domai.Client
	if cfg.OpenAI.APIKey != "" {
		aiClient = openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}
	aiSvc := appai.NewService(aiClient, analystRepo, store)

	// init router + middleware chain
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(zlog))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	if len(cfg.Auth.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
		mux.Use(middleware.RequireValidTenant)
	}
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	maxUpload := int64(cfg.Server.MaxUploadMB) << 20
	mux.Mount("/", httpserver.NewRouter(mediaSvc, aiSvc, hub, maxUpload, zlog))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// timeouts longgar, upload/download video bisa ratusan MB
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		zlog.Info("server listening", zap.String("addr", addr),
			zap.String("engine", cfg.Detector.Engine))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	zlog.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		zlog.Warn("shutdown error", zap.Error(err))
	}
}

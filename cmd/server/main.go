// Package main - CourseHub API Server
// Điểm vào cho máy chủ chính của hệ thống
// Chức năng:
//   - REST API (gin) cho danh mục khóa học, thanh toán và tiến độ học
//   - WebSocket study rooms, TCP engagement aggregator, UDP announcements
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"coursehub/internal/cache"
	"coursehub/internal/core"
	httpProtocol "coursehub/internal/protocols/http"
	tcpProtocol "coursehub/internal/protocols/tcp"
	udpProtocol "coursehub/internal/protocols/udp"
	wsProtocol "coursehub/internal/protocols/websocket"
	"coursehub/internal/repository"
	"coursehub/pkg/config"
	"coursehub/pkg/database"
	"coursehub/pkg/logger"
	"coursehub/pkg/objectstore"
	"coursehub/pkg/utils"
)

func main() {
	cfg, err := config.Load("./configs/development.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Logging)

	logger.Info("Starting CourseHub server...")

	dbCfg := database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Std(),
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime.Std(),
		Timeout:         cfg.Database.Timeout.Std(),
	}

	// The repositories run on the pgx pool; the lib/pq handle serves the
	// /health probe and shutdown diagnostics.
	pool, err := database.NewPGXPool(dbCfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	opsDB, err := database.NewDB(dbCfg)
	if err != nil {
		pool.Close()
		logger.Fatalf("Failed to open ops database handle: %v", err)
	}

	logger.Info("Connected to PostgreSQL database")

	assets, err := objectstore.New(context.Background(), objectstore.Config{
		Bucket:          cfg.Storage.Bucket,
		CDNHost:         cfg.Storage.CDNHost,
		CredentialsFile: cfg.Storage.CredentialsFile,
		SignedURLTTL:    cfg.Storage.SignedURLTTL.Std(),
	})
	if err != nil {
		logger.Fatalf("Failed to connect to object storage: %v", err)
	}

	logger.Info("Connected to object storage")

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)
	discussionRepo := repository.NewDiscussionRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	txnRepo := repository.NewTransactionRepository(pool)

	logger.Info("Initialized all repositories")

	// Core services
	authSvc := core.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration.Std())
	var courseSvc core.CourseService = core.NewCourseService(courseRepo, statsRepo, activityRepo, assets)
	reviewSvc := core.NewReviewService(reviewRepo, txnRepo, userRepo)
	discussionSvc := core.NewDiscussionService(discussionRepo, userRepo)
	activitySvc := core.NewActivityService(activityRepo)
	statsSvc := core.NewStatsService(statsRepo, courseRepo, activityRepo)
	progressSvc := core.NewProgressService(progressRepo, statsRepo)
	checkoutSvc := core.NewCheckoutService(txnRepo, courseRepo)
	assetSvc := core.NewAssetService(courseRepo, txnRepo, assets, cfg.Storage.SignedURLTTL.Std())

	// Optional Redis read cache in front of the catalog
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		courseSvc = cache.NewCourseService(courseSvc, rdb, cfg.Redis.TTL.Std())
		logger.Info("Course catalog cache enabled (Redis)")
	}

	logger.Info("Initialized all core services")

	// Protocol servers
	httpServer := httpProtocol.NewServer(
		cfg,
		authSvc,
		courseSvc,
		reviewSvc,
		discussionSvc,
		activitySvc,
		statsSvc,
		progressSvc,
		checkoutSvc,
		assetSvc,
	)
	httpServer.SetOpsDB(opsDB)

	wsHub := wsProtocol.NewHub(discussionRepo, activityRepo)
	wsHandler := wsProtocol.NewHandler(
		wsHub,
		authSvc,
		courseRepo,
		discussionRepo,
		activityRepo,
		statsSvc,
		[]string{"*"},
	)
	httpServer.Router().GET("/ws/courses/:course_id", wsHandler.HandleWebSocket)
	httpServer.Router().GET("/ws/courses/:course_id/status", wsHandler.GetRoomStatus)
	httpServer.Router().GET("/ws/status", wsHandler.GetGlobalStatus)

	udpServer := udpProtocol.NewServer(cfg.UDP.Host, cfg.UDP.Port, notificationRepo)
	tcpServer := tcpProtocol.NewServer(cfg.TCP.Host, cfg.TCP.Port, statsRepo, activityRepo)

	// Cross-protocol wiring: HTTP emits announcements through UDP; the
	// WebSocket hub reports engagement to the TCP aggregator.
	tcpAddr := fmt.Sprintf("%s:%d", cfg.TCP.Host, cfg.TCP.Port)
	httpServer.SetCrossProtocolServers(udpServer, tcpAddr)
	wsHub.SetStatsAddr(tcpAddr)

	logger.Info("Cross-protocol event flows configured")

	startServer := func(name string, run func() error) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("%s server panic recovered: %v", name, r)
				}
			}()
			if err := run(); err != nil {
				logger.Errorf("%s server error (non-fatal): %v", name, err)
			}
		}()
	}

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting HTTP server on %s", httpAddr)
	startServer("HTTP", func() error { return httpServer.Start(httpAddr) })

	if os.Getenv("ENABLE_UDP") != "false" {
		logger.Infof("Starting UDP server on %s:%d", cfg.UDP.Host, cfg.UDP.Port)
		startServer("UDP", udpServer.Start)
	} else {
		logger.Info("UDP server disabled (ENABLE_UDP=false)")
	}

	if os.Getenv("ENABLE_TCP") != "false" {
		logger.Infof("Starting TCP server on %s:%d", cfg.TCP.Host, cfg.TCP.Port)
		startServer("TCP", tcpServer.Start)
	} else {
		logger.Info("TCP server disabled (ENABLE_TCP=false)")
	}

	// Nightly trending refresh: decay weekly scores and re-add points
	// for the trailing week of feed activity.
	scoreTicker := time.NewTicker(24 * time.Hour)
	scoreDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-scoreTicker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := statsSvc.DecayWeeklyScores(ctx); err != nil {
					logger.Errorf("Weekly score refresh failed: %v", err)
				}
				cancel()
			case <-scoreDone:
				return
			}
		}
	}()

	logger.Info("All protocol servers started successfully")
	logger.Info("Press Ctrl+C to shutdown")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof("Received signal: %v", sig)

	logger.Info("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = utils.CloseAll(
		func() error { return httpServer.Shutdown(shutdownCtx) },
		func() error { scoreTicker.Stop(); close(scoreDone); return nil },
		func() error { udpServer.Stop(); return nil },
		func() error { tcpServer.Stop(); return nil },
		func() error { wsHub.Stop(); return nil },
		func() error {
			if rdb != nil {
				return rdb.Close()
			}
			return nil
		},
		assets.Close,
		func() error { pool.Close(); return nil },
		opsDB.Close,
	)
	if err != nil {
		logger.Errorf("Shutdown finished with errors: %v", err)
	} else {
		logger.Info("Shutdown complete")
	}
}

// Package main - TCP Engagement Aggregator
// Điểm vào cho TCP server dùng để tổng hợp engagement events
// Chức năng:
//   - Lắng nghe kết nối TCP từ nhiều services
//   - Nhận stats events qua length-prefixed JSON protocol
//   - Cập nhật course stats và weekly scores trong một transaction
//   - Xử lý concurrent connections với goroutines
//
// Port: 6000
package main

import (
	"os"
	"os/signal"
	"syscall"

	tcpProtocol "coursehub/internal/protocols/tcp"
	"coursehub/internal/repository"
	"coursehub/pkg/config"
	"coursehub/pkg/database"
	"coursehub/pkg/logger"
)

func main() {
	cfg, err := config.Load("./configs/development.yaml")
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.Logging)

	pool, err := database.NewPGXPool(database.Config{
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
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	statsRepo := repository.NewStatsRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)

	server := tcpProtocol.NewServer(cfg.TCP.Host, cfg.TCP.Port, statsRepo, activityRepo)

	if err := server.Start(); err != nil {
		logger.Fatalf("TCP server error: %v", err)
	}

	logger.Infof("TCP Engagement Aggregator started on %s:%d", cfg.TCP.Host, cfg.TCP.Port)

	// graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down TCP server...")
	server.Stop()
	logger.Info("TCP server stopped.")
}

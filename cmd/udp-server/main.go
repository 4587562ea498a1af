// Package main - UDP Notification Server
// Điểm vào cho UDP server dùng để gửi push notifications
// Chức năng:
//   - Broadcast course announcements đến nhiều clients
//   - Poll database để lấy notifications mới
//   - Connectionless protocol - không cần maintain connections
//   - Rate limiting 100 packets/second
//
// Port: 4000
package main

import (
	"os"
	"os/signal"
	"syscall"

	udpProtocol "coursehub/internal/protocols/udp"
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

	notificationRepo := repository.NewNotificationRepository(pool)

	server := udpProtocol.NewServer(cfg.UDP.Host, cfg.UDP.Port, notificationRepo)

	if err := server.Start(); err != nil {
		logger.Fatalf("UDP server error: %v", err)
	}

	logger.Infof("UDP Notification Server started on %s:%d", cfg.UDP.Host, cfg.UDP.Port)

	// graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down UDP server...")
	server.Stop()
	logger.Info("UDP server stopped.")
}

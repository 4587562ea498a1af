// Package main - CourseHub CLI
// Command-line client cho CourseHub marketplace
// Chức năng:
//   - Đăng ký / đăng nhập và lưu token
//   - Tìm kiếm và mua courses
//   - Xem library và transaction history
//   - Cập nhật progress, hỗ trợ offline queue
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"coursehub/internal/cli/auth"
	"coursehub/internal/cli/config"
	"coursehub/internal/cli/course"
	"coursehub/internal/cli/library"
	"coursehub/internal/cli/progress"
)

var rootCmd = &cobra.Command{
	Use:   "coursehub",
	Short: "CourseHub command-line client",
	Long:  "Search, buy, and study courses from the terminal.\nProgress updates made while offline are queued and synced later.",
}

func initConfig() {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(home, ".coursehub"))
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// The CLI only ever speaks HTTP; the other protocol ports belong
	// to the TUI and server configs.
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)

	// Missing config file is fine, defaults cover first run
	viper.ReadInConfig()
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(config.ConfigCmd)
	rootCmd.AddCommand(course.CourseCmd)
	rootCmd.AddCommand(library.LibraryCmd)
	rootCmd.AddCommand(progress.ProgressCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

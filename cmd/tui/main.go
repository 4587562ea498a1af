// Package main - CourseHub terminal client
// Trình duyệt khóa học trong terminal: danh mục, tìm kiếm, phòng học và
// thống kê, chạy trên Bubble Tea.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"coursehub/internal/tui"
	"coursehub/internal/tui/config"
)

func main() {
	configPath := flag.String("config", "", "config file (default: search the usual locations)")
	flag.Parse()

	// A missing file falls back to defaults inside Load; only a file
	// that exists but does not parse stops the program.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.UI.Theme != "dracula" {
		fmt.Fprintf(os.Stderr, "Unknown theme %q, falling back to dracula\n", cfg.UI.Theme)
	}

	p := tea.NewProgram(
		tui.New(cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

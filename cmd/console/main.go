package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forjaquest/forja-engine/internal/config"
	"github.com/forjaquest/forja-engine/internal/logger"
	"github.com/forjaquest/forja-engine/internal/orchestrator"
	"github.com/forjaquest/forja-engine/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg)

	if !testConnection(cfg.BackendURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to the backend at %s. Please ensure it is running.\nTry: docker-compose up -d\n", cfg.BackendURL)
		os.Exit(1)
	}

	client := services.NewAPIClient(cfg.BackendURL, log)
	orch := orchestrator.New(client, log)

	p := tea.NewProgram(NewConsoleUI(cfg, client, orch),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func testConnection(baseURL string) bool {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// Package backend selects the remote document store implementation from
// configuration: the in-memory store for local development and tests, or
// Google Sheets for a real deployment.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budgetfy/internal/config"
	"budgetfy/internal/remote"
	"budgetfy/internal/remote/memory"
	"budgetfy/internal/remote/sheets"
)

// Type identifies a remote backend implementation.
type Type string

const (
	MemoryBackend Type = "memory"
	SheetsBackend Type = "sheets"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// Factory creates remote clients based on configuration
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateRemote builds the remote client named by cfg.RemoteBackend.
func (f *Factory) CreateRemote(ctx context.Context, cfg *config.Config) (remote.Client, error) {
	backendType := Type(cfg.RemoteBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid remote backend: %s", cfg.RemoteBackend)
	}

	switch backendType {
	case SheetsBackend:
		cli, err := sheets.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize sheets backend: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend",
			"spreadsheet_id", cfg.SheetsSpreadsheetID)
		return cli, nil

	case MemoryBackend:
		f.logger.Info("Initialized in-memory backend")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported remote backend: %s", backendType)
	}
}

// Package store persists completed analyses so the CLI and the HTTP
// API can list and re-read past runs. Two backends exist: SQLite for
// single-user local use and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Source string          `json:"source,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.RunSummary, error)
	DeleteAnalysis(ctx context.Context, id string) error

	Migrate(ctx context.Context) error
	Close() error
}

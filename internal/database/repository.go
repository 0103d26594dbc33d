package database

import (
	"context"

	"posttrade/internal/model"
)

// Repository defines the standard interface for database operations.
type Repository interface {
	Migrate(ctx context.Context) error
	SaveReport(ctx context.Context, report model.StoredReport) error
	RecentReports(ctx context.Context, limit int) ([]model.StoredReport, error)
}

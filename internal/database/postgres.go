package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"posttrade/internal/config"
	"posttrade/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS slippage_reports (
	id UUID PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	currency VARCHAR(10) NOT NULL,
	threshold_bps DOUBLE PRECISION NOT NULL,
	total_notional DOUBLE PRECISION NOT NULL,
	weighted_avg_slippage_bps DOUBLE PRECISION NOT NULL,
	outlier_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS slippage_report_trades (
	report_id UUID NOT NULL REFERENCES slippage_reports(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	product VARCHAR(100) NOT NULL,
	broker VARCHAR(50) NOT NULL,
	quantity DOUBLE PRECISION NOT NULL,
	execution_price DOUBLE PRECISION NOT NULL,
	arrival_price DOUBLE PRECISION NOT NULL,
	slippage_bps DOUBLE PRECISION NOT NULL,
	notional DOUBLE PRECISION NOT NULL,
	flagged BOOLEAN NOT NULL,
	PRIMARY KEY (report_id, position)
);`

// PostgresRepository stores generated reports in PostgreSQL.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// NewPostgresRepository connects to the configured database.
func NewPostgresRepository(ctx context.Context, cfg config.DatabaseConfig) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.Pool.Close()
}

// Migrate creates the report tables when they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// SaveReport writes the report and all of its rows in one transaction.
func (r *PostgresRepository) SaveReport(ctx context.Context, report model.StoredReport) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	s := report.Summary
	_, err = tx.Exec(ctx, `
		INSERT INTO slippage_reports (id, generated_at, currency, threshold_bps, total_notional, weighted_avg_slippage_bps, outlier_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.ID, report.GeneratedAt, report.Currency, s.ThresholdBps, s.TotalNotional, s.WeightedAvgSlippageBps, len(s.Outliers),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	batch := &pgx.Batch{}
	for i, t := range report.Trades {
		batch.Queue(`
			INSERT INTO slippage_report_trades (report_id, position, product, broker, quantity, execution_price, arrival_price, slippage_bps, notional, flagged)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			report.ID, i, t.Product, t.Broker, t.Quantity, t.ExecutionPrice, t.ArrivalPrice, t.SlippageBps, t.Notional, s.IsOutlier(t),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert report trades: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// RecentReports returns the latest reports, newest first, with their rows.
func (r *PostgresRepository) RecentReports(ctx context.Context, limit int) ([]model.StoredReport, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT id, generated_at, currency, threshold_bps, total_notional, weighted_avg_slippage_bps
		FROM slippage_reports
		ORDER BY generated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	var reports []model.StoredReport
	for rows.Next() {
		var rep model.StoredReport
		if err := rows.Scan(&rep.ID, &rep.GeneratedAt, &rep.Currency, &rep.Summary.ThresholdBps, &rep.Summary.TotalNotional, &rep.Summary.WeightedAvgSlippageBps); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	for i := range reports {
		if err := r.loadTrades(ctx, &reports[i]); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func (r *PostgresRepository) loadTrades(ctx context.Context, rep *model.StoredReport) error {
	rows, err := r.Pool.Query(ctx, `
		SELECT product, broker, quantity, execution_price, arrival_price, slippage_bps, notional, flagged
		FROM slippage_report_trades
		WHERE report_id = $1
		ORDER BY position`, rep.ID)
	if err != nil {
		return fmt.Errorf("failed to query report trades: %w", err)
	}
	defer rows.Close()

	var flagged []int
	for rows.Next() {
		var t model.EnrichedTrade
		var isOutlier bool
		if err := rows.Scan(&t.Product, &t.Broker, &t.Quantity, &t.ExecutionPrice, &t.ArrivalPrice, &t.SlippageBps, &t.Notional, &isOutlier); err != nil {
			return fmt.Errorf("failed to scan report trade: %w", err)
		}
		if isOutlier {
			flagged = append(flagged, len(rep.Trades))
		}
		rep.Trades = append(rep.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read report trades: %w", err)
	}

	for _, i := range flagged {
		rep.Summary.Outliers = append(rep.Summary.Outliers, &rep.Trades[i])
	}
	return nil
}

package reporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"posttrade/internal/config"
	"posttrade/internal/database"
	"posttrade/internal/model"
	"posttrade/internal/render"
	"posttrade/internal/slippage"
)

// Service generates, presents and stores post-trade slippage reports.
type Service struct {
	logger *slog.Logger
	repo   database.Repository
	cfg    *config.Config
	now    func() time.Time
}

// NewService creates a new Service. repo may be nil, in which case reports are not stored.
func NewService(logger *slog.Logger, repo database.Repository, cfg *config.Config) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Generate computes the report for trades and stores it when a repository is set.
func (s *Service) Generate(ctx context.Context, trades []model.Trade) (*model.StoredReport, error) {
	enriched, summary, err := slippage.ComputeReport(trades, s.cfg.Report.ThresholdBps)
	if err != nil {
		s.logger.Error("Failed to compute slippage report", "trades", len(trades), "error", err)
		return nil, err
	}

	report := &model.StoredReport{
		ID:          uuid.NewString(),
		GeneratedAt: s.now(),
		Currency:    s.cfg.Report.Currency,
		Trades:      enriched,
		Summary:     summary,
	}

	s.logger.Info("Slippage report computed",
		"reportID", report.ID,
		"trades", len(enriched),
		"totalNotional", summary.TotalNotional,
		"weightedAvgSlippageBps", summary.WeightedAvgSlippageBps,
		"outliers", len(summary.Outliers),
	)
	for _, o := range summary.Outliers {
		s.logger.Warn("Execution above slippage limit",
			"product", o.Product,
			"broker", o.Broker,
			"slippageBps", o.SlippageBps,
			"thresholdBps", summary.ThresholdBps,
		)
	}

	if s.repo != nil {
		if err := s.repo.SaveReport(ctx, *report); err != nil {
			s.logger.Error("Failed to store report", "reportID", report.ID, "error", err)
			return report, fmt.Errorf("failed to store report: %w", err)
		}
	}
	return report, nil
}

// Run generates the report and writes the table and summary to out.
// The chart is saved when a chart path is configured. A storage failure
// is returned only after the report has been presented.
func (s *Service) Run(ctx context.Context, trades []model.Trade, out io.Writer) (*model.StoredReport, error) {
	report, storeErr := s.Generate(ctx, trades)
	if report == nil {
		return nil, storeErr
	}

	if err := render.WriteTable(out, report.Trades, report.Summary); err != nil {
		return report, fmt.Errorf("failed to write table: %w", err)
	}
	if err := render.WriteSummary(out, report.Summary, report.Currency); err != nil {
		return report, fmt.Errorf("failed to write summary: %w", err)
	}

	if path := s.cfg.Report.ChartPath; path != "" {
		if err := render.SaveChart(path, report.Trades, report.Summary, render.DefaultChartOptions()); err != nil {
			s.logger.Error("Failed to save chart", "path", path, "error", err)
			return report, err
		}
		s.logger.Info("Chart saved", "path", path)
	}
	return report, storeErr
}

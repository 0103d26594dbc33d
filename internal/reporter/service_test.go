package reporter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"posttrade/internal/config"
	"posttrade/internal/model"
	"posttrade/internal/slippage"
	"posttrade/internal/tradesource"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) SaveReport(ctx context.Context, report model.StoredReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockRepository) RecentReports(ctx context.Context, limit int) ([]model.StoredReport, error) {
	args := m.Called(ctx, limit)
	reports, _ := args.Get(0).([]model.StoredReport)
	return reports, args.Error(1)
}

func testConfig(chartPath string) *config.Config {
	return &config.Config{
		Report: config.ReportConfig{
			ThresholdBps: 10.0,
			Currency:     "EUR",
			ChartPath:    chartPath,
		},
		Trades: config.DefaultTrades(),
	}
}

func TestService_Generate(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	fixed := time.Date(2026, 2, 15, 17, 30, 0, 0, time.UTC)
	trades := tradesource.FromConfig(config.DefaultTrades())

	t.Run("stores the report", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("SaveReport", mock.Anything, mock.MatchedBy(func(r model.StoredReport) bool {
			return len(r.Trades) == 3 && len(r.Summary.Outliers) == 1 && r.Currency == "EUR" && r.GeneratedAt.Equal(fixed)
		})).Return(nil).Once()

		svc := NewService(logger, mockRepo, testConfig(""))
		svc.now = func() time.Time { return fixed }

		report, err := svc.Generate(context.Background(), trades)
		require.NoError(t, err)
		assert.NotEmpty(t, report.ID)
		assert.InDelta(t, 16894250.0, report.Summary.TotalNotional, 1e-6)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid trades are not stored", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(logger, mockRepo, testConfig(""))

		bad := append([]model.Trade(nil), trades...)
		bad[2].ArrivalPrice = 0
		report, err := svc.Generate(context.Background(), bad)
		assert.ErrorIs(t, err, slippage.ErrDivisionByZero)
		assert.Nil(t, report)
		mockRepo.AssertNotCalled(t, "SaveReport")
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("SaveReport", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()
		svc := NewService(logger, mockRepo, testConfig(""))

		report, err := svc.Generate(context.Background(), trades)
		assert.ErrorContains(t, err, "connection refused")
		assert.NotNil(t, report)
		mockRepo.AssertExpectations(t)
	})

	t.Run("no repository", func(t *testing.T) {
		svc := NewService(logger, nil, testConfig(""))
		_, err := svc.Generate(context.Background(), trades)
		assert.NoError(t, err)
	})
}

func TestService_Run(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chartPath := filepath.Join(t.TempDir(), "daily_broker_performance.png")
	svc := NewService(logger, nil, testConfig(chartPath))

	var out bytes.Buffer
	report, err := svc.Run(context.Background(), tradesource.FromConfig(config.DefaultTrades()), &out)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Contains(t, out.String(), "LVMH")
	assert.Contains(t, out.String(), "Flagged Transactions: 1 execution(s) above 10bps limit.")
	assert.FileExists(t, chartPath)
}

func TestService_Run_StorageFailureStillPresents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chartPath := filepath.Join(t.TempDir(), "daily_broker_performance.png")

	mockRepo := new(MockRepository)
	mockRepo.On("SaveReport", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()
	svc := NewService(logger, mockRepo, testConfig(chartPath))

	var out bytes.Buffer
	report, err := svc.Run(context.Background(), tradesource.FromConfig(config.DefaultTrades()), &out)
	assert.ErrorContains(t, err, "connection refused")
	require.NotNil(t, report)

	assert.Contains(t, out.String(), "LVMH")
	assert.Contains(t, out.String(), "Total Value Traded: 16,894,250.00 EUR")
	assert.FileExists(t, chartPath)
	mockRepo.AssertExpectations(t)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"posttrade/internal/config"
	"posttrade/internal/database"
	"posttrade/internal/feed"
	"posttrade/internal/logger"
	"posttrade/internal/model"
	"posttrade/internal/render"
	"posttrade/internal/reporter"
	"posttrade/internal/tradesource"
)

func newRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:          "posttrade",
		Short:        "Post-trade slippage analysis",
		Long:         `posttrade computes per-trade slippage against arrival price, the notional-weighted average slippage and the executions above the alert threshold.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory holding config.yaml")

	rootCmd.AddCommand(newReportCmd(&configDir))
	rootCmd.AddCommand(newHistoryCmd(&configDir))
	return rootCmd
}

func loadConfig(configDir string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load config: %w", err)
	}
	return &cfg, logger.New(cfg.Log, os.Stderr), nil
}

func newReportCmd(configDir *string) *cobra.Command {
	var (
		tradesFile string
		threshold  float64
		chartPath  string
		useFeed    bool
		persist    bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the daily slippage report",
		Example: `  posttrade report
  posttrade report --trades fills.csv --threshold 5 --chart perf.png
  posttrade report --feed --persist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configDir)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("trades") {
				cfg.Report.TradesFile = tradesFile
			}
			if flags.Changed("threshold") {
				cfg.Report.ThresholdBps = threshold
			}
			if flags.Changed("chart") {
				cfg.Report.ChartPath = chartPath
			}
			if flags.Changed("persist") {
				cfg.Report.Persist = persist
			}

			ctx := cmd.Context()
			trades, err := loadTrades(ctx, cfg, log, useFeed)
			if err != nil {
				return err
			}

			var repo database.Repository
			if cfg.Report.Persist {
				pg, err := openRepository(ctx, cfg)
				if err != nil {
					return err
				}
				defer pg.Close()
				repo = pg
			}

			svc := reporter.NewService(log, repo, cfg)
			if _, err := svc.Run(ctx, trades, cmd.OutOrStdout()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), render.DescribeError(err))
				cmd.SilenceErrors = true
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tradesFile, "trades", "", "CSV or YAML file with the trades to analyse")
	cmd.Flags().Float64Var(&threshold, "threshold", 10.0, "Slippage alert threshold in bps")
	cmd.Flags().StringVar(&chartPath, "chart", "", "Path of the PNG chart, empty to skip")
	cmd.Flags().BoolVar(&useFeed, "feed", false, "Collect trades from the configured live fill feed")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store the report in the database")
	return cmd
}

func loadTrades(ctx context.Context, cfg *config.Config, log *slog.Logger, useFeed bool) ([]model.Trade, error) {
	switch {
	case useFeed:
		f, err := feed.NewFeed(cfg.Feed.Kind, log, cfg.Feed)
		if err != nil {
			return nil, err
		}
		if cfg.Feed.TimeoutSeconds > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second)
			defer cancel()
		}
		trades, err := feed.Drain(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("feed %s failed: %w", f.Name(), err)
		}
		log.Info("Collected fills from feed", "feed", f.Name(), "fills", len(trades))
		return trades, nil
	case cfg.Report.TradesFile != "":
		return tradesource.LoadFile(cfg.Report.TradesFile)
	default:
		return tradesource.FromConfig(cfg.Trades), nil
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (*database.PostgresRepository, error) {
	repo, err := database.NewPostgresRepository(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func newHistoryCmd(configDir *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent stored reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			cfg, _, err := loadConfig(*configDir)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			reports, err := repo.RecentReports(ctx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "\nReport %s (%s)\n", r.ID, r.GeneratedAt.Format(time.RFC3339))
				if err := render.WriteTable(out, r.Trades, r.Summary); err != nil {
					return err
				}
				if err := render.WriteSummary(out, r.Summary, r.Currency); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of reports to show")
	return cmd
}

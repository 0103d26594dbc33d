package render

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"posttrade/internal/model"
	"posttrade/internal/slippage"
)

const amountFormat = "#,###.##"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	flaggedStyle = cellStyle.Foreground(lipgloss.Color("#EF4444")).Bold(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
)

// WriteTable renders one row per enriched trade, outliers highlighted.
func WriteTable(w io.Writer, trades []model.EnrichedTrade, summary model.ReportSummary) error {
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []string{
			t.Product,
			t.Broker,
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			strconv.FormatFloat(t.ExecutionPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ArrivalPrice, 'f', -1, 64),
			strconv.FormatFloat(t.SlippageBps, 'f', 2, 64),
			humanize.FormatFloat(amountFormat, t.Notional),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Product", "Broker", "Qty", "Exec Price", "Arrival Price", "Slippage (bps)", "Notional").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			return rowStyle(trades, summary, row)
		})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

// rowStyle picks the style of a table row; outliers are highlighted.
func rowStyle(trades []model.EnrichedTrade, summary model.ReportSummary, row int) lipgloss.Style {
	switch {
	case row == table.HeaderRow:
		return headerStyle
	case row >= 0 && row < len(trades) && summary.IsOutlier(trades[row]):
		return flaggedStyle
	default:
		return cellStyle
	}
}

// WriteSummary prints the daily analysis header and its three summary lines.
func WriteSummary(w io.Writer, summary model.ReportSummary, currency string) error {
	_, err := fmt.Fprintf(w, "%s\nTotal Value Traded: %s %s\nWeighted Average Slippage: %.2f bps\nFlagged Transactions: %d execution(s) above %sbps limit.\n",
		titleStyle.Render("--- DAILY POST-TRADE ANALYSIS ---"),
		humanize.FormatFloat(amountFormat, summary.TotalNotional),
		currency,
		summary.WeightedAvgSlippageBps,
		len(summary.Outliers),
		strconv.FormatFloat(summary.ThresholdBps, 'f', -1, 64),
	)
	return err
}

// DescribeError turns a report failure into a message naming the offending trade.
func DescribeError(err error) string {
	var tradeErr *slippage.TradeError
	if errors.As(err, &tradeErr) {
		return errorStyle.Render(fmt.Sprintf("Trade #%d rejected (product %q, broker %q): %s.",
			tradeErr.Index+1, tradeErr.Product, tradeErr.Broker, tradeErr.Reason))
	}

	switch {
	case errors.Is(err, slippage.ErrDivisionByZero):
		return errorStyle.Render("Report not produced: total notional is zero, weighted slippage is undefined.")
	case errors.Is(err, slippage.ErrInvalidInput):
		return errorStyle.Render(fmt.Sprintf("Report not produced: %v.", err))
	default:
		return errorStyle.Render(fmt.Sprintf("Report failed: %v", err))
	}
}

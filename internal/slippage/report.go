package slippage

import (
	"fmt"
	"math"
	"strings"

	"posttrade/internal/model"
)

// DefaultThresholdBps is the alert level above which an execution is flagged.
const DefaultThresholdBps = 10.0

const bpsPerUnit = 10000

// ComputeReport enriches every trade with its slippage and notional and
// aggregates the notional-weighted slippage and the outliers above thresholdBps.
//
// The returned slice has one row per input trade, in input order. The summary's
// Outliers point into that slice. No partial result is returned on error.
func ComputeReport(trades []model.Trade, thresholdBps float64) ([]model.EnrichedTrade, model.ReportSummary, error) {
	if len(trades) == 0 {
		return nil, model.ReportSummary{}, fmt.Errorf("no trades to report: %w", ErrInvalidInput)
	}
	if !isFinite(thresholdBps) {
		return nil, model.ReportSummary{}, fmt.Errorf("threshold %v is not a finite number: %w", thresholdBps, ErrInvalidInput)
	}

	enriched := make([]model.EnrichedTrade, len(trades))
	var totalNotional, weighted float64
	for i, t := range trades {
		if err := validate(i, t); err != nil {
			return nil, model.ReportSummary{}, err
		}
		e := model.EnrichedTrade{
			Trade:       t,
			SlippageBps: (t.ExecutionPrice - t.ArrivalPrice) / t.ArrivalPrice * bpsPerUnit,
			Notional:    t.Quantity * t.ExecutionPrice,
		}
		if !isFinite(e.SlippageBps) || !isFinite(e.Notional) {
			return nil, model.ReportSummary{}, &TradeError{
				Index: i, Product: t.Product, Broker: t.Broker,
				Reason: fmt.Sprintf("slippage %v or notional %v out of range", e.SlippageBps, e.Notional),
				Err:    ErrInvalidInput,
			}
		}
		enriched[i] = e
		totalNotional += e.Notional
		weighted += e.SlippageBps * e.Notional
	}

	if !isFinite(totalNotional) || !isFinite(weighted) {
		return nil, model.ReportSummary{}, fmt.Errorf("aggregate notional %v or weighted slippage %v out of range: %w", totalNotional, weighted, ErrInvalidInput)
	}
	if totalNotional == 0 {
		return nil, model.ReportSummary{}, fmt.Errorf("total notional is zero, weighted slippage undefined: %w", ErrDivisionByZero)
	}

	summary := model.ReportSummary{
		TotalNotional:          totalNotional,
		WeightedAvgSlippageBps: weighted / totalNotional,
		ThresholdBps:           thresholdBps,
	}
	if !isFinite(summary.WeightedAvgSlippageBps) {
		return nil, model.ReportSummary{}, fmt.Errorf("weighted slippage %v out of range: %w", summary.WeightedAvgSlippageBps, ErrInvalidInput)
	}
	for i := range enriched {
		if summary.IsOutlier(enriched[i]) {
			summary.Outliers = append(summary.Outliers, &enriched[i])
		}
	}

	return enriched, summary, nil
}

func validate(i int, t model.Trade) error {
	fail := func(reason string, err error) error {
		return &TradeError{Index: i, Product: t.Product, Broker: t.Broker, Reason: reason, Err: err}
	}

	switch {
	case strings.TrimSpace(t.Product) == "":
		return fail("missing product", ErrInvalidInput)
	case strings.TrimSpace(t.Broker) == "":
		return fail("missing broker", ErrInvalidInput)
	case !isFinite(t.Quantity):
		return fail("quantity is not a finite number", ErrInvalidInput)
	case !isFinite(t.ExecutionPrice) || t.ExecutionPrice <= 0:
		return fail(fmt.Sprintf("execution price %v must be positive", t.ExecutionPrice), ErrInvalidInput)
	case !isFinite(t.ArrivalPrice) || t.ArrivalPrice < 0:
		return fail(fmt.Sprintf("arrival price %v must be positive", t.ArrivalPrice), ErrInvalidInput)
	case t.ArrivalPrice == 0:
		return fail("arrival price is zero", ErrDivisionByZero)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

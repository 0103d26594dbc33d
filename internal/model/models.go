package model

import "time"

// Trade is a single execution as reported by the OMS.
type Trade struct {
	Product        string  `yaml:"product" json:"product"`
	Broker         string  `yaml:"broker" json:"broker"`
	Quantity       float64 `yaml:"quantity" json:"qty"`
	ExecutionPrice float64 `yaml:"execution_price" json:"exec_price"`
	ArrivalPrice   float64 `yaml:"arrival_price" json:"arrival_price"`
}

// EnrichedTrade is a Trade with its slippage and notional computed.
type EnrichedTrade struct {
	Trade
	SlippageBps float64
	Notional    float64
}

// ReportSummary holds the aggregate figures of a report.
// Outliers point into the enriched slice the summary was computed with.
type ReportSummary struct {
	TotalNotional          float64
	WeightedAvgSlippageBps float64
	ThresholdBps           float64
	Outliers               []*EnrichedTrade
}

// IsOutlier reports whether t is above the summary threshold.
func (s ReportSummary) IsOutlier(t EnrichedTrade) bool {
	return t.SlippageBps > s.ThresholdBps
}

// StoredReport is one generated report as it is logged to the database.
type StoredReport struct {
	ID          string    `db:"id"`
	GeneratedAt time.Time `db:"generated_at"`
	Currency    string    `db:"currency"`
	Trades      []EnrichedTrade
	Summary     ReportSummary
}

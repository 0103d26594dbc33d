package slippage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for empty input or a trade failing a sanity check.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDivisionByZero is returned when an arrival price or the total notional is zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// TradeError attributes a failure to one input trade.
type TradeError struct {
	Index   int
	Product string
	Broker  string
	Reason  string
	Err     error
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("trade %d (%s / %s): %s: %v", e.Index, e.Product, e.Broker, e.Reason, e.Err)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

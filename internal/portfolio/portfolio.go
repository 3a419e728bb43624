// Package portfolio tracks cash, positions, realized/unrealized PnL,
// commission, slippage, and drawdown across a backtest, fed exclusively by
// fills dispatched from the simulation engine.
package portfolio

import (
	"fenrir/internal/book"

	"github.com/shopspring/decimal"
)

// SlippageFunc adjusts an execution price to model market impact. It
// receives the actual fill-generating trade, not a placeholder — passing a
// zero-value order here was the documented bug in the source this spec was
// distilled from.
type SlippageFunc func(trade book.Trade) float64

// Portfolio is the engine's sole bookkeeper for cash and positions. It is
// mutated only by ApplyFill and TakeSnapshot, both invoked from the
// single-threaded simulation loop.
type Portfolio struct {
	InitialCapital float64
	Cash           float64
	CommissionRate float64
	Slippage       SlippageFunc

	positions map[string]*Position

	maxEquity    float64
	maxDrawdown  float64
	equityPeaked bool
}

// New creates a portfolio seeded with initialCapital in cash.
func New(initialCapital, commissionRate float64) *Portfolio {
	return &Portfolio{
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		CommissionRate: commissionRate,
		positions:      make(map[string]*Position),
		maxEquity:      initialCapital,
	}
}

// Position returns the position for symbol, creating a flat one if absent.
// The returned pointer is a borrow; do not retain across ApplyFill calls.
func (p *Portfolio) Position(symbol string) *Position {
	pos, ok := p.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		p.positions[symbol] = pos
	}
	return pos
}

// ApplyFill updates cash and the relevant position for a trade. side is the
// side the portfolio's own strategy was on for this fill: Bid means the
// strategy bought (signed quantity positive), Ask means it sold (signed
// quantity negative). Prices stay in the trade's integer ticks, the same
// unit as the engine's mid-price marks.
func (p *Portfolio) ApplyFill(symbol string, side book.Side, trade book.Trade) {
	price := float64(trade.Price)
	if p.Slippage != nil {
		price = p.Slippage(trade)
	}

	signedQty := int64(trade.Quantity)
	if side == book.Ask {
		signedQty = -signedQty
	}

	pos := p.Position(symbol)
	pos.applyFill(signedQty, price)

	notional := price * float64(trade.Quantity)
	commission := notional * p.CommissionRate
	if side == book.Bid {
		p.Cash -= notional
	} else {
		p.Cash += notional
	}
	p.Cash -= commission
}

// Equity returns cash + realized PnL + unrealized PnL marked at the given
// per-symbol marks.
func (p *Portfolio) Equity(marks map[string]float64) float64 {
	equity := p.Cash
	for symbol, pos := range p.positions {
		equity += pos.RealizedPnL
		equity += pos.UnrealizedPnL(marks[symbol])
	}
	return equity
}

// Snapshot is a point-in-time record of portfolio state, appended to
// history on EndOfDay events.
type Snapshot struct {
	Timestamp   int64
	Equity      float64
	Cash        float64
	Realized    float64
	Unrealized  float64
	Positions   map[string]Position
}

// TakeSnapshot records the portfolio's current state at timestamp using
// marks for unrealized PnL.
func (p *Portfolio) TakeSnapshot(timestamp int64, marks map[string]float64) Snapshot {
	var realized, unrealized float64
	positions := make(map[string]Position, len(p.positions))
	for symbol, pos := range p.positions {
		realized += pos.RealizedPnL
		unrealized += pos.UnrealizedPnL(marks[symbol])
		positions[symbol] = *pos
	}
	equity := p.Cash + realized + unrealized

	if equity > p.maxEquity {
		p.maxEquity = equity
	}
	if p.maxEquity > 0 {
		drawdown := (p.maxEquity - equity) / p.maxEquity
		if drawdown > p.maxDrawdown {
			p.maxDrawdown = drawdown
		}
	}

	return Snapshot{
		Timestamp:  timestamp,
		Equity:     equity,
		Cash:       p.Cash,
		Realized:   realized,
		Unrealized: unrealized,
		Positions:  positions,
	}
}

// MaxDrawdown returns the worst peak-to-trough equity decline observed so
// far, as a fraction of peak equity.
func (p *Portfolio) MaxDrawdown() float64 {
	return p.maxDrawdown
}

// EquityDecimal renders equity at marks as a decimal.Decimal for
// human-facing reports (the engine itself never uses decimal internally).
func (p *Portfolio) EquityDecimal(marks map[string]float64) decimal.Decimal {
	return decimal.NewFromFloat(p.Equity(marks)).Round(2)
}

package signals

import (
	"math"

	"fenrir/internal/book"
)

// VPIN tracks order-flow toxicity over a rolling window of the last k
// trades: |Σ buy_qty - Σ sell_qty| / Σ qty. Trades reach it only through
// OnTrade; the simulation engine does not call OnTrade itself.
type VPIN struct {
	window int
	trades []book.Trade
}

// NewVPIN creates a calculator over the last window trades.
func NewVPIN(window int) *VPIN {
	if window <= 0 {
		window = 50
	}
	return &VPIN{window: window}
}

// OnTrade records a trade's aggressor side and quantity.
func (v *VPIN) OnTrade(t book.Trade) {
	v.trades = append(v.trades, t)
	if len(v.trades) > v.window {
		v.trades = v.trades[len(v.trades)-v.window:]
	}
}

// Value returns the current VPIN estimate, or 0 if no trades recorded.
func (v *VPIN) Value() float64 {
	var buyQty, sellQty, total float64
	for _, t := range v.trades {
		q := float64(t.Quantity)
		total += q
		if t.AggressorSide == book.Bid {
			buyQty += q
		} else {
			sellQty += q
		}
	}
	if total == 0 {
		return 0
	}
	return math.Abs(buyQty-sellQty) / total
}

// SpreadZScore tracks a running mean/variance of the spread and reports how
// many standard deviations the current spread is from its rolling mean.
// Update must be called once per market event before Value is read.
type SpreadZScore struct {
	window  int
	samples []float64
}

// NewSpreadZScore creates a calculator over the last window spread samples.
func NewSpreadZScore(window int) *SpreadZScore {
	if window <= 0 {
		window = 100
	}
	return &SpreadZScore{window: window}
}

// Update records the book's current spread as a new sample.
func (z *SpreadZScore) Update(b *book.OrderBook) {
	z.samples = append(z.samples, float64(b.Spread()))
	if len(z.samples) > z.window {
		z.samples = z.samples[len(z.samples)-z.window:]
	}
}

// Value returns the z-score of the most recent sample against the window's
// mean/stddev, or 0 if fewer than two samples have been recorded.
func (z *SpreadZScore) Value() float64 {
	n := len(z.samples)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, s := range z.samples {
		mean += s
	}
	mean /= float64(n)

	var variance float64
	for _, s := range z.samples {
		d := s - mean
		variance += d * d
	}
	variance /= float64(n)
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return (z.samples[n-1] - mean) / stddev
}

// PressureAccumulator holds an exponentially decayed running average of
// book pressure, smoothing the instantaneous BookPressure signal across
// market events.
type PressureAccumulator struct {
	levels int
	decay  float64
	ema    float64
	alpha  float64
	warm   bool
}

// NewPressureAccumulator creates an accumulator reading the top levels
// levels per side with per-level decay, smoothed by an EMA with the given
// alpha in (0, 1].
func NewPressureAccumulator(levels int, decay, alpha float64) *PressureAccumulator {
	return &PressureAccumulator{levels: levels, decay: decay, alpha: alpha}
}

// Update folds the book's current pressure reading into the running EMA.
func (p *PressureAccumulator) Update(b *book.OrderBook) {
	sample := BookPressure(b, p.levels, p.decay)
	if !p.warm {
		p.ema = sample
		p.warm = true
		return
	}
	p.ema = p.alpha*sample + (1-p.alpha)*p.ema
}

// Value returns the current smoothed pressure reading.
func (p *PressureAccumulator) Value() float64 {
	return p.ema
}

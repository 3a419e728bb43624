package sim

import (
	"fenrir/internal/book"
	"fenrir/internal/portfolio"
)

// Params is a read-only string->float64 parameter map, as fed to
// strategies at initialization.
type Params map[string]float64

// Get returns the named parameter, or def if it is absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Strategy is the callback contract the engine drives. Implementations
// must be total: callbacks are bugs if they panic, spawn goroutines, or
// block — the engine runs every callback synchronously to completion
// before popping the next event.
type Strategy interface {
	Initialize(params Params)
	OnMarketData(update MarketDataUpdate, b *book.OrderBook, p *portfolio.Portfolio)
	OnSignal(signal Signal, b *book.OrderBook, p *portfolio.Portfolio)
	OnFill(trade book.Trade, p *portfolio.Portfolio)
	OnStart()
	OnEnd(p *portfolio.Portfolio)
	GenerateOrders(b *book.OrderBook, p *portfolio.Portfolio) []OrderRequest
}

package strategy

import (
	"fenrir/internal/book"
	"fenrir/internal/portfolio"
	"fenrir/internal/signals"
	"fenrir/internal/sim"
)

// ImbalanceStrategy is a reference strategy: it buys when order book
// imbalance favors the bid side past a threshold and sells when it favors
// the ask side. It issues nothing while imbalance stays inside the
// threshold band, and stops adding in a direction once its position
// reaches maxPosition; it never flattens an open position. It exists to
// exercise the full Strategy contract end to end, not as a production
// signal.
type ImbalanceStrategy struct {
	threshold   float64
	maxPosition int64
	orderSize   uint64
	tickSize    int64

	lastImbalance float64
}

// NewImbalanceStrategy constructs a strategy reading "threshold",
// "max_position", "order_size", and "tick_size" from its Params at
// Initialize, defaulting each if absent.
func NewImbalanceStrategy() *ImbalanceStrategy {
	return &ImbalanceStrategy{}
}

func (s *ImbalanceStrategy) Initialize(params Params) {
	s.threshold = params.Get("threshold", 0.2)
	s.maxPosition = int64(params.Get("max_position", 500))
	s.orderSize = uint64(params.Get("order_size", 10))
	s.tickSize = int64(params.Get("tick_size", 1))
}

func (s *ImbalanceStrategy) OnMarketData(update sim.MarketDataUpdate, b *book.OrderBook, p *portfolio.Portfolio) {
	// signals.Imbalance is bidQty/(bidQty+askQty), centered at 0.5 -- the
	// scale the threshold comparisons below assume. book.OrderImbalance
	// itself is signed (Σbid-Σask)/Σ, a different scale.
	s.lastImbalance = signals.Imbalance(b)
}

func (s *ImbalanceStrategy) OnSignal(signal sim.Signal, b *book.OrderBook, p *portfolio.Portfolio) {}

func (s *ImbalanceStrategy) OnFill(trade book.Trade, p *portfolio.Portfolio) {}

func (s *ImbalanceStrategy) OnStart() {}

func (s *ImbalanceStrategy) OnEnd(p *portfolio.Portfolio) {}

// GenerateOrders issues a single marketable limit order crossing the
// current spread when imbalance clears the threshold and the strategy's
// position limit allows it, otherwise issues nothing.
func (s *ImbalanceStrategy) GenerateOrders(b *book.OrderBook, p *portfolio.Portfolio) []sim.OrderRequest {
	ask, okAsk := b.BestAsk()
	bid, okBid := b.BestBid()
	if !okAsk || !okBid {
		return nil
	}

	pos := p.Position(b.Symbol).Quantity

	switch {
	case s.lastImbalance >= 0.5+s.threshold/2 && pos < s.maxPosition:
		return []sim.OrderRequest{{
			Side:     book.Bid,
			Type:     book.Limit,
			Price:    ask,
			Quantity: s.orderSize,
			ClientID: "imbalance-strategy",
		}}
	case s.lastImbalance <= 0.5-s.threshold/2 && pos > -s.maxPosition:
		return []sim.OrderRequest{{
			Side:     book.Ask,
			Type:     book.Limit,
			Price:    bid,
			Quantity: s.orderSize,
			ClientID: "imbalance-strategy",
		}}
	}
	return nil
}

package sim

import (
	"container/heap"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/metrics"
	"fenrir/internal/portfolio"
)

// DataSource feeds time-sorted events into the engine. Implementations
// must deliver events in non-decreasing timestamp order.
type DataSource interface {
	HasNext() bool
	Next() (Event, error)
	Reset() error
}

// SignalCalculator is a stateless calculate(book) -> Signal evaluated
// after every market-data event, paired with any Updaters registered for
// the same run so stateful calculators stay current before calculate is
// polled.
type SignalCalculator func(b *book.OrderBook) Signal

// Updater is a stateful calculator's per-event hook (e.g.
// SpreadZScore.Update, PressureAccumulator.Update), invoked before
// SignalCalculators on each market event so calculate() always reads fresh
// state. An Updater receives only the book; the engine has no hook that
// passes trades to a calculator, so VPIN.OnTrade is not called by it.
type Updater func(b *book.OrderBook)

// Engine is the event-driven simulation loop. It owns the heap of pending
// events, one OrderBook per symbol, the portfolio, registered strategies,
// and the mark-to-mid price cache. It is the sole mutator of all of these;
// strategies run synchronously inside its callbacks.
type Engine struct {
	books         map[string]*book.OrderBook
	tickSizes     map[string]int64
	portfolio     *portfolio.Portfolio
	strategies    []Strategy
	updaters      []Updater
	calculators   []SignalCalculator
	currentPrices map[string]float64

	queue        eventQueue
	sequence     uint64
	currentTime  int64
	stopping     bool

	equityHistory []metrics.EquityPoint
	notionalSum   float64
	tradeCount    int
}

// New creates an engine over portfolio p. A symbol whose book was not
// created through Book beforehand gets a book with tick size 0 when it is
// first seen.
func New(p *portfolio.Portfolio) *Engine {
	e := &Engine{
		books:         make(map[string]*book.OrderBook),
		tickSizes:     make(map[string]int64),
		portfolio:     p,
		currentPrices: make(map[string]float64),
	}
	heap.Init(&e.queue)
	return e
}

// RegisterStrategy adds a strategy the engine will drive on every event.
func (e *Engine) RegisterStrategy(s Strategy) {
	e.strategies = append(e.strategies, s)
}

// RegisterUpdater adds a stateful calculator hook run on every market event.
func (e *Engine) RegisterUpdater(u Updater) {
	e.updaters = append(e.updaters, u)
}

// RegisterSignalCalculator adds a stateless calculator synthesizing a
// Signal event after every market update.
func (e *Engine) RegisterSignalCalculator(c SignalCalculator) {
	e.calculators = append(e.calculators, c)
}

// Book returns the book for symbol, creating one at tickSize if absent.
func (e *Engine) Book(symbol string, tickSize int64) *book.OrderBook {
	b, ok := e.books[symbol]
	if !ok {
		b = book.New(symbol, tickSize)
		e.books[symbol] = b
		e.tickSizes[symbol] = tickSize
	}
	return b
}

// Portfolio returns the engine's portfolio.
func (e *Engine) Portfolio() *portfolio.Portfolio {
	return e.portfolio
}

// Stop requests a clean drain: the outer loop finishes the event currently
// in flight and then exits without popping another. There is no mid-event
// interruption.
func (e *Engine) Stop() {
	e.stopping = true
}

func (e *Engine) pushEvent(ev Event) {
	ev.Sequence = e.sequence
	e.sequence++
	heap.Push(&e.queue, ev)
}

// Run drains source into the engine until exhausted or Stop is called,
// dispatching each event in non-decreasing timestamp order, and returns
// the backtest result computed from the recorded equity curve.
func (e *Engine) Run(source DataSource) metrics.BacktestResult {
	for _, s := range e.strategies {
		s.OnStart()
	}

	for source.HasNext() && !e.stopping {
		ev, err := source.Next()
		if err != nil {
			log.Error().Err(err).Msg("error reading next event from data source")
			continue
		}
		e.pushEvent(ev)
		e.drainQueue()
	}

	for _, s := range e.strategies {
		s.OnEnd(e.portfolio)
	}

	return metrics.Compute(e.equityHistory, e.notionalSum, e.tradeCount)
}

// drainQueue pops and dispatches every event currently in the heap,
// including fills and orders appended during dispatch, in (Timestamp,
// Sequence) order.
func (e *Engine) drainQueue() {
	for e.queue.Len() > 0 {
		ev := heap.Pop(&e.queue).(Event)
		e.currentTime = ev.Timestamp
		e.dispatch(ev)
	}
}

func (e *Engine) dispatch(ev Event) {
	switch ev.Kind {
	case KindMarketData:
		e.handleMarketData(ev)
	case KindSignal:
		e.handleSignal(ev)
	case KindOrder:
		e.handleOrder(ev)
	case KindFill:
		e.handleFill(ev)
	case KindEndOfDay:
		e.handleEndOfDay(ev)
	}
}

func (e *Engine) handleMarketData(ev Event) {
	upd := ev.Update
	if upd == nil {
		return
	}
	b := e.Book(ev.Symbol, e.tickSizes[ev.Symbol])

	switch upd.Kind {
	case UpdateAddOrder:
		trades, _ := b.AddResting(upd.OrderID, upd.Side, upd.Price, upd.Quantity, ev.Timestamp)
		for _, t := range trades {
			e.pushEvent(Event{
				Kind:      KindFill,
				Timestamp: ev.Timestamp,
				Symbol:    ev.Symbol,
				Trade:     &t,
			})
		}
	case UpdateModifyOrder:
		b.ModifyOrder(upd.OrderID, upd.NewPrice, upd.Quantity)
	case UpdateCancelOrder:
		b.CancelOrder(upd.OrderID)
	case UpdateTrade, UpdateSnapshot:
		// Informational: the feed's own add/cancel stream is authoritative.
	case UpdateClear:
		e.books[ev.Symbol] = book.New(ev.Symbol, e.tickSizes[ev.Symbol])
		b = e.books[ev.Symbol]
	case UpdateNoop:
		// Unparsable or unrecognized feed row: no-op by contract.
	}

	e.currentPrices[ev.Symbol] = b.Mid()

	for _, u := range e.updaters {
		u(b)
	}
	for _, c := range e.calculators {
		sig := c(b)
		e.dispatchSignalNow(sig, b, ev.Symbol)
	}
	for _, s := range e.strategies {
		s.OnMarketData(*upd, b, e.portfolio)
		e.collectOrders(s, ev.Symbol, b)
	}
}

// collectOrders polls a strategy for any orders it wants to place given the
// book/portfolio state it just observed, and enqueues each at the engine's
// current time so it is processed strictly after the triggering event.
func (e *Engine) collectOrders(s Strategy, symbol string, b *book.OrderBook) {
	for _, req := range s.GenerateOrders(b, e.portfolio) {
		e.SubmitOrder(symbol, req)
	}
}

// dispatchSignalNow delivers a synthesized signal inline within the
// triggering market event, rather than re-queuing it, so strategies always
// observe the signal that corresponds to the book state they just saw.
func (e *Engine) dispatchSignalNow(sig Signal, b *book.OrderBook, symbol string) {
	for _, s := range e.strategies {
		s.OnSignal(sig, b, e.portfolio)
		e.collectOrders(s, symbol, b)
	}
}

func (e *Engine) handleSignal(ev Event) {
	if ev.Signal == nil {
		return
	}
	b := e.Book(ev.Symbol, e.tickSizes[ev.Symbol])
	for _, s := range e.strategies {
		s.OnSignal(*ev.Signal, b, e.portfolio)
		e.collectOrders(s, ev.Symbol, b)
	}
}

func (e *Engine) handleOrder(ev Event) {
	req := ev.Order
	if req == nil {
		return
	}
	b := e.Book(ev.Symbol, e.tickSizes[ev.Symbol])

	var trades []book.Trade
	if req.Type == book.Market {
		trades = b.ProcessMarketOrder(req.Side, req.Quantity, req.ClientID)
	} else {
		_, trades = b.AddOrder(req.Side, req.Price, req.Quantity, req.Type, req.ClientID)
	}

	for _, t := range trades {
		e.pushEvent(Event{
			Kind:      KindFill,
			Timestamp: e.currentTime,
			Symbol:    ev.Symbol,
			Trade:     &t,
		})
	}
}

func (e *Engine) handleFill(ev Event) {
	if ev.Trade == nil {
		return
	}
	trade := *ev.Trade
	e.notionalSum += float64(trade.Price) * float64(trade.Quantity)
	e.tradeCount++
	e.portfolio.ApplyFill(ev.Symbol, trade.AggressorSide, trade)

	for _, s := range e.strategies {
		s.OnFill(trade, e.portfolio)
	}
}

func (e *Engine) handleEndOfDay(ev Event) {
	snap := e.portfolio.TakeSnapshot(ev.Timestamp, e.currentPrices)
	e.equityHistory = append(e.equityHistory, metrics.EquityPoint{
		Timestamp: snap.Timestamp,
		Equity:    snap.Equity,
	})
}

// SubmitOrder enqueues a strategy-originated order at the engine's current
// time, so it is processed strictly after the triggering event completes.
func (e *Engine) SubmitOrder(symbol string, req OrderRequest) {
	e.pushEvent(Event{
		Kind:      KindOrder,
		Timestamp: e.currentTime,
		Symbol:    symbol,
		Order:     &req,
	})
}

package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/portfolio"
	"fenrir/internal/sim"
)

// fixedSource replays a fixed slice of events, satisfying sim.DataSource.
type fixedSource struct {
	events []sim.Event
	pos    int
}

func (f *fixedSource) HasNext() bool { return f.pos < len(f.events) }

func (f *fixedSource) Next() (sim.Event, error) {
	ev := f.events[f.pos]
	f.pos++
	return ev, nil
}

func (f *fixedSource) Reset() error {
	f.pos = 0
	return nil
}

func addEvent(ts int64, symbol string, side book.Side, price int64, qty uint64, id uint64) sim.Event {
	return sim.Event{
		Kind:      sim.KindMarketData,
		Timestamp: ts,
		Symbol:    symbol,
		Update: &sim.MarketDataUpdate{
			Kind:     sim.UpdateAddOrder,
			OrderID:  id,
			Side:     side,
			Price:    price,
			Quantity: qty,
		},
	}
}

func TestEngineRoundTrip(t *testing.T) {
	// S7 - inject ADD bid then a crossing ADD ask at increasing timestamps.
	// Expect one Fill, aggressor side Ask, and the ask-order owner short 40
	// at price 100.
	p := portfolio.New(100000, 0)
	e := sim.New(p)
	e.Book("AAPL", 1)

	src := &fixedSource{events: []sim.Event{
		addEvent(1, "AAPL", book.Bid, 100, 50, 1),
		addEvent(2, "AAPL", book.Ask, 99, 40, 2),
	}}

	result := e.Run(src)
	assert.Equal(t, 1, result.TradeCount)

	pos := p.Position("AAPL")
	assert.Equal(t, int64(-40), pos.Quantity)
	assert.InDelta(t, 100.0, pos.AveragePrice, 1e-9)
}

func TestEngineNonCrossingAddsFromUnsortedSource(t *testing.T) {
	p := portfolio.New(1000, 0)
	e := sim.New(p)
	e.Book("AAPL", 1)

	// The source delivers the later timestamp first. The engine dispatches
	// source events in delivery order (the heap orders only the fills and
	// orders derived from each one); two non-crossing adds leave no trades
	// and an uncrossed book either way.
	src := &fixedSource{events: []sim.Event{
		addEvent(5, "AAPL", book.Bid, 100, 10, 1),
		addEvent(1, "AAPL", book.Ask, 101, 10, 2),
	}}

	result := e.Run(src)
	assert.Equal(t, 0, result.TradeCount)

	b := e.Book("AAPL", 1)
	assert.False(t, b.IsCrossed())
}

func TestEngineEndOfDaySnapshot(t *testing.T) {
	p := portfolio.New(5000, 0)
	e := sim.New(p)
	e.Book("AAPL", 1)

	src := &fixedSource{events: []sim.Event{
		addEvent(1, "AAPL", book.Bid, 100, 10, 1),
		{Kind: sim.KindEndOfDay, Timestamp: 2, Symbol: "AAPL"},
	}}

	result := e.Run(src)
	require.Len(t, result.EquityCurve, 1)
	assert.InDelta(t, 5000.0, result.EquityCurve[0], 1e-9)
}

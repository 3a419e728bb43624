package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/portfolio"
	"fenrir/internal/sim"
	"fenrir/internal/strategy"
)

func TestImbalanceStrategyBuysOnBidHeavyBook(t *testing.T) {
	b := book.New("AAPL", 1)
	_, trades := b.AddOrder(book.Bid, 100, 100, book.Limit, "mm")
	require.Empty(t, trades)
	_, trades = b.AddOrder(book.Ask, 101, 10, book.Limit, "mm")
	require.Empty(t, trades)

	p := portfolio.New(100000, 0)

	s := strategy.NewImbalanceStrategy()
	s.Initialize(strategy.Params{"threshold": 0.1, "max_position": 500, "order_size": 5})
	s.OnMarketData(sim.MarketDataUpdate{}, b, p)

	orders := s.GenerateOrders(b, p)
	require.Len(t, orders, 1)
	assert.Equal(t, book.Bid, orders[0].Side)
	assert.Equal(t, uint64(5), orders[0].Quantity)
}

func TestImbalanceStrategyFlatWhenBalanced(t *testing.T) {
	b := book.New("AAPL", 1)
	_, _ = b.AddOrder(book.Bid, 100, 10, book.Limit, "mm")
	_, _ = b.AddOrder(book.Ask, 101, 10, book.Limit, "mm")

	p := portfolio.New(100000, 0)

	s := strategy.NewImbalanceStrategy()
	s.Initialize(strategy.Params{"threshold": 0.1})
	s.OnMarketData(sim.MarketDataUpdate{}, b, p)

	assert.Empty(t, s.GenerateOrders(b, p))
}

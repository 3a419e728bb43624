package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
)

func TestSimpleCross(t *testing.T) {
	// S1 - seed a bid then a crossing ask, expect one trade at the resting
	// bid's price and an empty, uncrossed book afterward.
	b := book.New("TEST", 1)

	bidID, trades := b.AddOrder(book.Bid, 10000, 100, book.Limit, "buyer")
	require.NotEqual(t, book.NoOrderID, bidID)
	assert.Empty(t, trades)

	_, trades = b.AddOrder(book.Ask, 9990, 100, book.Limit, "seller")
	require.Len(t, trades, 1)
	assert.Equal(t, int64(10000), trades[0].Price)
	assert.Equal(t, uint64(100), trades[0].Quantity)

	assert.Equal(t, 0, b.OrderCount())
	assert.Equal(t, int64(0), b.Spread())
	assert.False(t, b.IsCrossed())
}

func TestPriceTimePriority(t *testing.T) {
	// S2 - three bids at one price, a sweeping market sell.
	b := book.New("TEST", 1)

	id1, _ := b.AddOrder(book.Bid, 100, 30, book.Limit, "a")
	id2, _ := b.AddOrder(book.Bid, 100, 20, book.Limit, "b")
	_, _ = b.AddOrder(book.Bid, 100, 25, book.Limit, "c")

	assert.Equal(t, uint64(75), b.BestBidQuantity())

	trades := b.ProcessMarketOrder(book.Ask, 40, "taker")
	require.Len(t, trades, 2)
	assert.Equal(t, id1, trades[0].PassiveID)
	assert.Equal(t, uint64(30), trades[0].Quantity)
	assert.Equal(t, id2, trades[1].PassiveID)
	assert.Equal(t, uint64(10), trades[1].Quantity)

	// 75 resting minus 40 swept: id2 keeps 10 at the head, id3 keeps 25.
	assert.Equal(t, uint64(35), b.BestBidQuantity())
	orders := b.OrdersAt(100, book.Bid)
	require.Len(t, orders, 2)
	assert.Equal(t, id2, orders[0].ID)
}

func TestModifyPreservesQueueWhenShrinking(t *testing.T) {
	// S3
	b := book.New("TEST", 1)
	id1, _ := b.AddOrder(book.Bid, 100, 30, book.Limit, "a")
	b.AddOrder(book.Bid, 100, 20, book.Limit, "b")

	ok := b.ModifyOrder(id1, nil, 20)
	require.True(t, ok)

	orders := b.OrdersAt(100, book.Bid)
	require.Len(t, orders, 2)
	assert.Equal(t, id1, orders[0].ID)
	assert.Equal(t, uint64(20), orders[0].Remaining)
	assert.Equal(t, uint64(40), b.BestBidQuantity())
}

func TestModifyLosesQueueWhenIncreasing(t *testing.T) {
	// S4
	b := book.New("TEST", 1)
	id1, _ := b.AddOrder(book.Bid, 100, 30, book.Limit, "a")
	id2, _ := b.AddOrder(book.Bid, 100, 20, book.Limit, "b")

	ok := b.ModifyOrder(id1, nil, 50)
	require.True(t, ok)

	orders := b.OrdersAt(100, book.Bid)
	require.Len(t, orders, 2)
	assert.Equal(t, id2, orders[0].ID)
	assert.Equal(t, id1, orders[1].ID)
	assert.Equal(t, uint64(70), b.BestBidQuantity())
}

func TestMarketSweepAcrossLevels(t *testing.T) {
	// S5
	b := book.New("TEST", 1)
	b.AddOrder(book.Ask, 105, 30, book.Limit, "a")
	b.AddOrder(book.Ask, 106, 40, book.Limit, "b")

	trades := b.ProcessMarketOrder(book.Bid, 50, "taker")
	require.Len(t, trades, 2)
	assert.Equal(t, int64(105), trades[0].Price)
	assert.Equal(t, uint64(30), trades[0].Quantity)
	assert.Equal(t, int64(106), trades[1].Price)
	assert.Equal(t, uint64(20), trades[1].Quantity)

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, int64(106), ask)
	assert.Equal(t, uint64(20), b.BestAskQuantity())
}

func TestCancelUnknownOrderReturnsFalse(t *testing.T) {
	b := book.New("TEST", 1)
	assert.False(t, b.CancelOrder(9999))
}

func TestModifyUnknownOrderReturnsFalse(t *testing.T) {
	b := book.New("TEST", 1)
	assert.False(t, b.ModifyOrder(9999, nil, 10))
}

func TestAddOrderZeroQuantityRejected(t *testing.T) {
	b := book.New("TEST", 1)
	id, trades := b.AddOrder(book.Bid, 100, 0, book.Limit, "a")
	assert.Equal(t, book.NoOrderID, id)
	assert.Nil(t, trades)
	assert.Equal(t, uint64(1), b.GetStats().OrdersRejected)
}

func TestStopOrdersRejected(t *testing.T) {
	b := book.New("TEST", 1)
	id, _ := b.AddOrder(book.Bid, 100, 10, book.Stop, "a")
	assert.Equal(t, book.NoOrderID, id)
}

func TestCancelRemovesEmptyLevel(t *testing.T) {
	b := book.New("TEST", 1)
	id, _ := b.AddOrder(book.Bid, 100, 10, book.Limit, "a")
	require.True(t, b.CancelOrder(id))
	_, ok := b.BestBid()
	assert.False(t, ok)
	assert.Equal(t, 0, b.OrderCount())
}

func TestInvariantLevelConsistency(t *testing.T) {
	b := book.New("TEST", 1)
	b.AddOrder(book.Bid, 100, 30, book.Limit, "a")
	b.AddOrder(book.Bid, 100, 20, book.Limit, "b")
	b.AddOrder(book.Bid, 99, 10, book.Limit, "c")

	for _, lvl := range b.BidLevels(10) {
		var sum uint64
		for _, o := range lvl.Orders {
			sum += o.Remaining
		}
		assert.Equal(t, sum, lvl.TotalQuantity)
		assert.Equal(t, len(lvl.Orders), len(b.OrdersAt(lvl.Price, book.Bid)))
	}
}

func TestNeverCrossedAfterAdd(t *testing.T) {
	b := book.New("TEST", 1)
	b.AddOrder(book.Bid, 100, 10, book.Limit, "a")
	b.AddOrder(book.Ask, 101, 10, book.Limit, "b")
	assert.False(t, b.IsCrossed())

	b.AddOrder(book.Bid, 105, 5, book.Limit, "c")
	assert.False(t, b.IsCrossed())
}

func TestMarketOrderDiscardsUnfilledRemainder(t *testing.T) {
	b := book.New("TEST", 1)
	b.AddOrder(book.Ask, 100, 10, book.Limit, "a")

	trades := b.ProcessMarketOrder(book.Bid, 50, "taker")
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(10), trades[0].Quantity)
	assert.Equal(t, 0, b.OrderCount())
}

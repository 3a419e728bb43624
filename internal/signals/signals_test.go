package signals_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fenrir/internal/book"
	"fenrir/internal/signals"
)

func TestImbalanceAndMicroprice(t *testing.T) {
	// S6 - top-1 bid qty=80, ask qty=20 -> I=0.8, weighted_mid skews toward
	// the ask, microprice sign positive (mid is pulled up, toward the thin
	// ask side, when bids dominate).
	b := book.New("TEST", 1)
	b.AddOrder(book.Bid, 100, 80, book.Limit, "buyer")
	b.AddOrder(book.Ask, 102, 20, book.Limit, "seller")

	i := signals.Imbalance(b)
	assert.InDelta(t, 0.8, i, 1e-9)

	weighted := signals.WeightedMid(b)
	expected := i*102 + (1-i)*100
	assert.InDelta(t, expected, weighted, 1e-9)

	mid := b.Mid()
	micro := signals.Microprice(b)
	assert.Greater(t, micro, mid)
}

func TestImbalanceEmptyBookIsHalf(t *testing.T) {
	b := book.New("TEST", 1)
	assert.Equal(t, 0.5, signals.Imbalance(b))
}

func TestEffectiveSpreadZeroWhenNoMid(t *testing.T) {
	b := book.New("TEST", 1)
	b.AddOrder(book.Bid, 100, 10, book.Limit, "a")
	assert.Equal(t, 0.0, signals.EffectiveSpread(b))
}

func TestQueuePositionBettersTouch(t *testing.T) {
	b := book.New("TEST", 1)
	b.AddOrder(book.Bid, 100, 10, book.Limit, "a")

	assert.Equal(t, 1, signals.QueuePosition(b, book.Bid, 101))
	assert.Equal(t, 2, signals.QueuePosition(b, book.Bid, 100))
}

func TestVPINBalancedFlowIsZero(t *testing.T) {
	v := signals.NewVPIN(10)
	v.OnTrade(book.Trade{AggressorSide: book.Bid, Quantity: 10})
	v.OnTrade(book.Trade{AggressorSide: book.Ask, Quantity: 10})
	assert.Equal(t, 0.0, v.Value())
}

func TestVPINOneSidedFlowIsOne(t *testing.T) {
	v := signals.NewVPIN(10)
	v.OnTrade(book.Trade{AggressorSide: book.Bid, Quantity: 10})
	v.OnTrade(book.Trade{AggressorSide: book.Bid, Quantity: 5})
	assert.Equal(t, 1.0, v.Value())
}

func TestPriceImpactZeroOnEmptyBook(t *testing.T) {
	b := book.New("TEST", 1)
	assert.Equal(t, 0.0, signals.PriceImpact(b, book.Bid, 10))
}

func TestBundleFinite(t *testing.T) {
	b := book.New("TEST", 1)
	b.AddOrder(book.Bid, 99, 40, book.Limit, "a")
	b.AddOrder(book.Ask, 101, 30, book.Limit, "b")

	bundle := signals.Bundle(b)
	assert.Greater(t, bundle.SpreadBps, 0.0)
	assert.Equal(t, uint64(70), bundle.DepthAtTouch)
}

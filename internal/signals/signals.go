// Package signals computes read-only microstructure analytics over an
// internal/book.OrderBook: imbalance, microprice, pressure, impact, VPIN,
// queue position, and a bundled market-quality snapshot. Stateless
// functions are plain calculate(book) calls; a handful of calculators that
// need trade or spread history expose an update/on_trade method instead
// (see stateful.go).
package signals

import (
	"math"

	"fenrir/internal/book"
)

// Imbalance is the top-of-book size asymmetry: bid_qty / (bid_qty + ask_qty),
// yielding 0.5 when both sides are empty.
func Imbalance(b *book.OrderBook) float64 {
	bidQty := b.BestBidQuantity()
	askQty := b.BestAskQuantity()
	total := bidQty + askQty
	if total == 0 {
		return 0.5
	}
	return float64(bidQty) / float64(total)
}

// AggregatedImbalance is the normalized size asymmetry over the top n
// levels per side: (Σbid - Σask) / (Σbid + Σask).
func AggregatedImbalance(b *book.OrderBook, n int) float64 {
	return b.OrderImbalance(n)
}

// Microprice biases mid toward the thin side of the book using the
// Stoikov-style arctan transform of top-of-book imbalance.
func Microprice(b *book.OrderBook) float64 {
	return b.Microprice(1)
}

// WeightedMid is I*ask + (1-I)*bid using top-of-book imbalance I.
func WeightedMid(b *book.OrderBook) float64 {
	bid, bidOK := b.BestBid()
	ask, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return 0
	}
	i := Imbalance(b)
	return i*float64(ask) + (1-i)*float64(bid)
}

// BookPressure weights quantities at up to n levels per side by decay^k
// and returns Σw·bid / (Σw·bid + Σw·ask).
func BookPressure(b *book.OrderBook, n int, decay float64) float64 {
	bidLevels := b.BidLevels(n)
	askLevels := b.AskLevels(n)

	weighted := func(levels []*book.PriceLevel) float64 {
		var sum float64
		w := 1.0
		for _, lvl := range levels {
			sum += w * float64(lvl.TotalQuantity)
			w *= decay
		}
		return sum
	}

	bidW := weighted(bidLevels)
	askW := weighted(askLevels)
	total := bidW + askW
	if total == 0 {
		return 0.5
	}
	return bidW / total
}

// PriceImpact walks up to 20 opposite levels consuming size and returns the
// relative price move between the first and last touched level.
func PriceImpact(b *book.OrderBook, side book.Side, size uint64) float64 {
	var levels []*book.PriceLevel
	if side == book.Bid {
		levels = b.AskLevels(20)
	} else {
		levels = b.BidLevels(20)
	}
	if len(levels) == 0 {
		return 0
	}

	initial := levels[0].Price
	last := initial
	remaining := size
	for _, lvl := range levels {
		if remaining == 0 {
			break
		}
		last = lvl.Price
		if lvl.TotalQuantity >= remaining {
			remaining = 0
		} else {
			remaining -= lvl.TotalQuantity
		}
	}
	if initial == 0 {
		return 0
	}
	return math.Abs(float64(last-initial)) / float64(initial)
}

// EffectiveSpread is (ask-bid)/mid, or 0 if mid is 0.
func EffectiveSpread(b *book.OrderBook) float64 {
	mid := b.Mid()
	if mid == 0 {
		return 0
	}
	return float64(b.Spread()) / mid
}

// BookResilience is near-touch depth across 3 levels per side divided by
// the current spread, or 0 if the book is not crossed-free with a spread.
func BookResilience(b *book.OrderBook) float64 {
	spread := b.Spread()
	if spread == 0 {
		return 0
	}
	depth := sumDepth(b.BidLevels(3)) + sumDepth(b.AskLevels(3))
	return float64(depth) / float64(spread)
}

// QueuePosition returns the 1-based queue position, counted in orders, of a
// hypothetical order resting at (side, price): 1 if it would better the
// current touch, else the resting order count at that level plus 1.
func QueuePosition(b *book.OrderBook, side book.Side, price int64) int {
	var touch int64
	var touchOK bool
	if side == book.Bid {
		touch, touchOK = b.BestBid()
	} else {
		touch, touchOK = b.BestAsk()
	}
	if !touchOK {
		return 1
	}
	better := (side == book.Bid && price > touch) || (side == book.Ask && price < touch)
	if better {
		return 1
	}
	return len(b.OrdersAt(price, side)) + 1
}

// MarketQuality bundles a market-quality snapshot used for reporting.
type MarketQuality struct {
	SpreadBps       float64
	DepthAtTouch    uint64
	Imbalance       float64
	Microprice      float64
	EffectiveSpread float64
	Resilience      float64
	Pressure        float64
	VolatilityProxy float64
}

// Bundle computes the market-quality snapshot described in the spec.
func Bundle(b *book.OrderBook) MarketQuality {
	mid := b.Mid()
	var spreadBps float64
	if mid != 0 {
		spreadBps = float64(b.Spread()) / mid * 10000
	}
	imbalance := Imbalance(b)
	q := MarketQuality{
		SpreadBps:       spreadBps,
		DepthAtTouch:    b.BestBidQuantity() + b.BestAskQuantity(),
		Imbalance:       imbalance,
		Microprice:      Microprice(b),
		EffectiveSpread: EffectiveSpread(b),
		Resilience:      BookResilience(b),
		Pressure:        BookPressure(b, 5, 0.7),
	}
	q.VolatilityProxy = spreadBps * (1 - math.Abs(0.5-imbalance))
	return q
}

func sumDepth(levels []*book.PriceLevel) uint64 {
	var total uint64
	for _, lvl := range levels {
		total += lvl.TotalQuantity
	}
	return total
}

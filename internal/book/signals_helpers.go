package book

import "math"

// OrderImbalance returns the normalized size asymmetry over the top n
// aggregated levels per side: (Σbid - Σask) / (Σbid + Σask), or 0.5 when n
// <= 1 and both sides are empty, 0 when both are empty at n > 1.
func (b *OrderBook) OrderImbalance(n int) float64 {
	bidQty := sumQuantity(b.BidLevels(n))
	askQty := sumQuantity(b.AskLevels(n))
	total := bidQty + askQty
	if total == 0 {
		if n <= 1 {
			return 0.5
		}
		return 0
	}
	return (float64(bidQty) - float64(askQty)) / float64(total)
}

// Microprice biases the mid toward the thin side of the book using the
// Stoikov-style arctan transform of top-of-book imbalance.
func (b *OrderBook) Microprice(n int) float64 {
	mid := b.Mid()
	if mid == 0 {
		return 0
	}
	bidQty := b.BestBidQuantity()
	askQty := b.BestAskQuantity()
	total := bidQty + askQty
	var imbalance float64 = 0.5
	if total > 0 {
		imbalance = float64(bidQty) / float64(total)
	}
	spread := float64(b.Spread())
	return mid + (2/math.Pi)*math.Atan(2*imbalance-1)*spread/2
}

func sumQuantity(levels []*PriceLevel) uint64 {
	var total uint64
	for _, lvl := range levels {
		total += lvl.TotalQuantity
	}
	return total
}

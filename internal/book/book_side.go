package book

import "github.com/tidwall/btree"

// BookSide is an ordered map from price to PriceLevel. Bids are kept
// descending (best bid first), asks ascending (best ask first), so the
// minimum item under the side's own comparator is always the touch.
type BookSide struct {
	side   Side
	levels *btree.BTreeG[*PriceLevel]
}

func newBookSide(side Side) *BookSide {
	var less func(a, b *PriceLevel) bool
	if side == Bid {
		less = func(a, b *PriceLevel) bool { return a.Price > b.Price }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price < b.Price }
	}
	return &BookSide{side: side, levels: btree.NewBTreeG(less)}
}

// getOrCreateLevel returns the level at price, creating an empty one if
// absent. The returned pointer is a borrow valid until the next mutating
// call on this BookSide.
func (bs *BookSide) getOrCreateLevel(price int64) *PriceLevel {
	if lvl, ok := bs.levels.Get(&PriceLevel{Price: price}); ok {
		return lvl
	}
	lvl := newPriceLevel(price, bs.side)
	bs.levels.Set(lvl)
	return lvl
}

// level returns the level at price without creating it.
func (bs *BookSide) level(price int64) (*PriceLevel, bool) {
	return bs.levels.Get(&PriceLevel{Price: price})
}

// removeIfEmpty erases the level at price if it no longer holds orders.
// Must be called whenever the last order at a price departs.
func (bs *BookSide) removeIfEmpty(price int64) {
	if lvl, ok := bs.level(price); ok && lvl.empty() {
		bs.levels.Delete(lvl)
	}
}

// best returns the touch level, or nil if the side is empty.
func (bs *BookSide) best() *PriceLevel {
	lvl, ok := bs.levels.Min()
	if !ok {
		return nil
	}
	return lvl
}

func (bs *BookSide) empty() bool {
	return bs.levels.Len() == 0
}

// topLevels returns up to n levels from best outward. The returned slice
// and its elements are borrows valid until the next mutating call.
func (bs *BookSide) topLevels(n int) []*PriceLevel {
	if n <= 0 {
		return nil
	}
	out := make([]*PriceLevel, 0, n)
	bs.levels.Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return len(out) < n
	})
	return out
}

// forEachCrossing iterates levels from best outward while crosses returns
// true, stopping at the first level that does not cross or when the side is
// exhausted. The callback may mutate or remove the level it is given.
func (bs *BookSide) forEachCrossing(crosses func(price int64) bool, visit func(lvl *PriceLevel) (stop bool)) {
	for {
		lvl := bs.best()
		if lvl == nil || !crosses(lvl.Price) {
			return
		}
		if visit(lvl) {
			return
		}
	}
}

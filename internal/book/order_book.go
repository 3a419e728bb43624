package book

import "time"

// Sentinel return values. The core never errors; callers read these.
const (
	NoOrderID uint64 = 0
)

// OrderBook is a single-symbol, single-threaded matching engine. All
// operations are total: invalid input returns a sentinel or false and
// never mutates state, per the failure semantics in the spec.
type OrderBook struct {
	Symbol   string
	TickSize int64

	bids *BookSide
	asks *BookSide

	ordersByID map[uint64]*Order
	nextID     uint64

	bestBid    int64
	bestBidOK  bool
	bestAsk    int64
	bestAskOK  bool
	cacheValid bool

	trades []Trade
	stats  Stats
}

// New creates an empty book for symbol with the given tick size.
func New(symbol string, tickSize int64) *OrderBook {
	return &OrderBook{
		Symbol:     symbol,
		TickSize:   tickSize,
		bids:       newBookSide(Bid),
		asks:       newBookSide(Ask),
		ordersByID: make(map[uint64]*Order),
		nextID:     1,
	}
}

func (b *OrderBook) sideOf(side Side) *BookSide {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeOf(side Side) *BookSide {
	if side == Bid {
		return b.asks
	}
	return b.bids
}

// AddOrder adds a new order. For Limit orders any crossing quantity is
// matched immediately (price improvement to the aggressor); any residual
// rests. For Market orders price is ignored, the order sweeps the opposite
// side up to quantity and any unfilled remainder is discarded (IOC). Stop
// and StopLimit orders carry no activation semantics in the core and are
// rejected.
//
// Returns the newly allocated order id (never reused) and any trades
// generated by the add. Returns (NoOrderID, nil) for quantity == 0 or an
// unsupported order type.
func (b *OrderBook) AddOrder(side Side, price int64, quantity uint64, typ Type, clientID string) (uint64, []Trade) {
	started := time.Now()
	defer func() { b.stats.TotalLatencyNs += uint64(time.Since(started)) }()

	if quantity == 0 || typ == Stop || typ == StopLimit {
		b.stats.OrdersRejected++
		return NoOrderID, nil
	}
	if typ == Limit && price <= 0 {
		b.stats.OrdersRejected++
		return NoOrderID, nil
	}

	id := b.nextID
	b.nextID++

	order := &Order{
		ID:        id,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Timestamp: started.UnixNano(),
		ClientID:  clientID,
		Status:    StatusNew,
	}
	b.stats.OrdersAdded++

	return b.insert(order)
}

// AddResting reconstructs a fully-formed order from a feed at a caller
// supplied id and timestamp (used by the simulation engine's AddOrder
// market-data handler). Duplicate ids are rejected. Any crosses produced by
// reconstructing the order are real matches against the live book and are
// returned just as they would be for a directly-submitted order.
func (b *OrderBook) AddResting(id uint64, side Side, price int64, quantity uint64, timestamp int64) ([]Trade, bool) {
	if quantity == 0 || price <= 0 {
		b.stats.OrdersRejected++
		return nil, false
	}
	if _, exists := b.ordersByID[id]; exists {
		b.stats.OrdersRejected++
		return nil, false
	}
	if id >= b.nextID {
		b.nextID = id + 1
	}
	order := &Order{
		ID:        id,
		Side:      side,
		Type:      Limit,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Timestamp: timestamp,
		Status:    StatusNew,
	}
	b.stats.OrdersAdded++
	_, trades := b.insert(order)
	return trades, true
}

func (b *OrderBook) insert(order *Order) (uint64, []Trade) {
	var trades []Trade
	if order.Type == Market {
		trades = b.match(order)
		// IOC: any unfilled remainder is discarded, never rests.
	} else {
		lvl := b.sideOf(order.Side).getOrCreateLevel(order.Price)
		lvl.add(order)
		b.ordersByID[order.ID] = order
		b.invalidateCache()
		if b.IsCrossed() {
			trades = b.match(order)
		}
	}
	return order.ID, trades
}

// match sweeps the opposite side against aggressor while it crosses,
// emitting trades in emission order. aggressor may be resting in its own
// level (Limit case) or transient (Market case).
func (b *OrderBook) match(aggressor *Order) []Trade {
	var emitted []Trade
	opposite := b.oppositeOf(aggressor.Side)

	// The aggressor's own resting level (Limit case only) already carries
	// its full quantity, added by insert before match runs; every unit
	// matched here must also come off that level's total, or the level
	// overstates resting size by whatever the aggressor just consumed.
	var ownLevel *PriceLevel
	if aggressor.Type == Limit {
		ownLevel, _ = b.sideOf(aggressor.Side).level(aggressor.Price)
	}

	crosses := func(price int64) bool {
		if aggressor.Remaining == 0 {
			return false
		}
		if aggressor.Type == Market {
			return true
		}
		if aggressor.Side == Bid {
			return aggressor.Price >= price
		}
		return aggressor.Price <= price
	}

	opposite.forEachCrossing(crosses, func(lvl *PriceLevel) bool {
		for aggressor.Remaining > 0 {
			passive := lvl.front()
			if passive == nil {
				break
			}
			matchQty := min(aggressor.Remaining, passive.Remaining)

			ts := aggressor.Timestamp
			if passive.Timestamp > ts {
				ts = passive.Timestamp
			}
			trade := Trade{
				AggressorID:   aggressor.ID,
				PassiveID:     passive.ID,
				Symbol:        b.Symbol,
				AggressorSide: aggressor.Side,
				Price:         passive.Price,
				Quantity:      matchQty,
				Timestamp:     ts,
			}
			b.trades = append(b.trades, trade)
			emitted = append(emitted, trade)

			aggressor.fill(matchQty)
			if ownLevel != nil {
				ownLevel.TotalQuantity -= matchQty
			}

			newPassiveRemaining := passive.Remaining - matchQty
			lvl.modify(passive, newPassiveRemaining)
			if newPassiveRemaining == 0 {
				passive.Status = StatusFilled
				delete(b.ordersByID, passive.ID)
				// Drop the now-exhausted front immediately so the next
				// inner-loop iteration's lvl.front() advances to the next
				// order in FIFO order, instead of re-reading this one.
				lvl.dropFilled()
			} else {
				passive.Status = StatusPartiallyFilled
			}

			b.stats.TradesMatched++
			b.stats.MatchedVolume += matchQty
		}
		levelEmpty := lvl.empty()
		if levelEmpty {
			opposite.levels.Delete(lvl)
		}
		b.invalidateCache()
		return aggressor.Remaining == 0
	})

	if aggressor.Type == Limit && aggressor.Remaining == 0 {
		// Fully filled as the aggressor: remove from its own resting level.
		own := b.sideOf(aggressor.Side)
		own.remove(aggressor)
		own.removeIfEmpty(aggressor.Price)
		delete(b.ordersByID, aggressor.ID)
		b.invalidateCache()
	}

	return emitted
}

// remove is a helper used only from match's own-side cleanup; kept here
// rather than exported since it needs the order's price/side.
func (bs *BookSide) remove(o *Order) {
	if lvl, ok := bs.level(o.Price); ok {
		lvl.remove(o.ID)
	}
}

// CancelOrder removes a resting order by id. Returns false if unknown.
func (b *OrderBook) CancelOrder(id uint64) bool {
	order, ok := b.ordersByID[id]
	if !ok {
		return false
	}
	side := b.sideOf(order.Side)
	if lvl, ok := side.level(order.Price); ok {
		lvl.remove(order.ID)
		side.removeIfEmpty(order.Price)
	}
	delete(b.ordersByID, id)
	order.Status = StatusCancelled
	b.stats.OrdersCancelled++
	b.invalidateCache()
	return true
}

// ModifyOrder applies the spec's modify policy:
//   - shrinking quantity with an unchanged price preserves queue position
//     (in-place reduction);
//   - any price change, or a quantity increase, loses queue position
//     (cancel and re-add at the tail of the new price).
//
// A re-added order whose new price crosses the book is matched like a new
// limit order; its trades are appended to the trade log.
//
// newPrice == nil means "price unchanged". Returns false if id is unknown.
func (b *OrderBook) ModifyOrder(id uint64, newPrice *int64, newQuantity uint64) bool {
	order, ok := b.ordersByID[id]
	if !ok {
		return false
	}
	b.stats.OrdersModified++

	priceChanged := newPrice != nil && *newPrice != order.Price
	quantityIncreased := newQuantity > order.Remaining

	side := b.sideOf(order.Side)
	if !priceChanged && !quantityIncreased {
		if lvl, ok := side.level(order.Price); ok {
			lvl.modify(order, newQuantity)
		}
		b.invalidateCache()
		return true
	}

	// A quantity increase grows the order's own total, not just its
	// remaining, to preserve 0 <= remaining <= quantity.
	if quantityIncreased && newQuantity > order.Quantity {
		order.Quantity = newQuantity
	}

	// Loses queue position: remove then re-add at the (possibly new) price, tail.
	if lvl, ok := side.level(order.Price); ok {
		lvl.remove(order.ID)
		side.removeIfEmpty(order.Price)
	}
	if newPrice != nil {
		order.Price = *newPrice
	}
	order.Remaining = newQuantity
	order.Status = StatusPartiallyFilled
	if newQuantity == order.Quantity {
		order.Status = StatusNew
	}
	dest := side.getOrCreateLevel(order.Price)
	dest.add(order)
	b.invalidateCache()
	if priceChanged && b.IsCrossed() {
		b.match(order)
	}
	return true
}

func (b *OrderBook) invalidateCache() {
	b.cacheValid = false
}

func (b *OrderBook) refreshCache() {
	if b.cacheValid {
		return
	}
	if lvl := b.bids.best(); lvl != nil {
		b.bestBid, b.bestBidOK = lvl.Price, true
	} else {
		b.bestBid, b.bestBidOK = 0, false
	}
	if lvl := b.asks.best(); lvl != nil {
		b.bestAsk, b.bestAskOK = lvl.Price, true
	} else {
		b.bestAsk, b.bestAskOK = 0, false
	}
	b.cacheValid = true
}

// BestBid returns the highest resting bid price, or (0, false) if none.
func (b *OrderBook) BestBid() (int64, bool) {
	b.refreshCache()
	return b.bestBid, b.bestBidOK
}

// BestAsk returns the lowest resting ask price, or (0, false) if none.
func (b *OrderBook) BestAsk() (int64, bool) {
	b.refreshCache()
	return b.bestAsk, b.bestAskOK
}

// Mid is (bid+ask)/2 when both sides are present, else 0.
func (b *OrderBook) Mid() float64 {
	bid, bidOK := b.BestBid()
	ask, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return 0
	}
	return float64(bid+ask) / 2
}

// Spread is ask-bid, or 0 if either side is empty.
func (b *OrderBook) Spread() int64 {
	bid, bidOK := b.BestBid()
	ask, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return 0
	}
	return ask - bid
}

// BestBidQuantity returns the aggregate resting quantity at the best bid.
func (b *OrderBook) BestBidQuantity() uint64 {
	if lvl := b.bids.best(); lvl != nil {
		return lvl.TotalQuantity
	}
	return 0
}

// BestAskQuantity returns the aggregate resting quantity at the best ask.
func (b *OrderBook) BestAskQuantity() uint64 {
	if lvl := b.asks.best(); lvl != nil {
		return lvl.TotalQuantity
	}
	return 0
}

// BidLevels returns up to n bid levels from best outward. The returned
// levels are borrows valid until the next mutating call.
func (b *OrderBook) BidLevels(n int) []*PriceLevel {
	return b.bids.topLevels(n)
}

// AskLevels returns up to n ask levels from best outward. The returned
// levels are borrows valid until the next mutating call.
func (b *OrderBook) AskLevels(n int) []*PriceLevel {
	return b.asks.topLevels(n)
}

// OrdersAt returns the resting orders at price on side, in time order.
func (b *OrderBook) OrdersAt(price int64, side Side) []*Order {
	lvl, ok := b.sideOf(side).level(price)
	if !ok {
		return nil
	}
	out := make([]*Order, len(lvl.Orders))
	copy(out, lvl.Orders)
	return out
}

// IsCrossed reports whether the book is currently crossed. A correctly
// operating book is never crossed once a public operation returns.
func (b *OrderBook) IsCrossed() bool {
	bid, bidOK := b.BestBid()
	ask, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return false
	}
	return bid >= ask
}

// OrderCount returns the number of live resting orders across both sides.
func (b *OrderBook) OrderCount() int {
	return len(b.ordersByID)
}

// GetStats returns a copy of the book's operational counters.
func (b *OrderBook) GetStats() Stats {
	return b.stats
}

// Trades returns the trade log in emission order. The slice is a borrow.
func (b *OrderBook) Trades() []Trade {
	return b.trades
}

// ProcessMarketOrder sweeps the book for a strategy-originated market order
// and returns the trades it generated (spec.md §4.4's order-event Market
// handling path).
func (b *OrderBook) ProcessMarketOrder(side Side, quantity uint64, clientID string) []Trade {
	_, trades := b.AddOrder(side, 0, quantity, Market, clientID)
	return trades
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

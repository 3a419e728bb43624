package book

// Trade is an execution report. Price is always the resting (passive)
// order's price, giving the aggressor price improvement.
type Trade struct {
	AggressorID   uint64
	PassiveID     uint64
	Symbol        string
	AggressorSide Side
	Price         int64
	Quantity      uint64
	Timestamp     int64
}

// Stats accumulates operational metrics for an OrderBook across its
// lifetime. Adds (including rejected ones), cancels, modifies and matches
// update it; a cancel or modify of an unknown id leaves it unchanged.
type Stats struct {
	OrdersAdded     uint64
	OrdersCancelled uint64
	OrdersModified  uint64
	OrdersRejected  uint64
	TradesMatched   uint64
	MatchedVolume   uint64
	TotalLatencyNs  uint64
}

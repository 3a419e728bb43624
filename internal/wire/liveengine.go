package wire

import (
	"sync"

	"fenrir/internal/book"
)

// LiveBooks is the Engine implementation backing the live TCP server: one
// OrderBook per symbol, created lazily at a fixed tick size, guarded by a
// single mutex since order flow across symbols is low enough volume here
// not to warrant per-symbol locks.
type LiveBooks struct {
	mu       sync.Mutex
	tickSize int64
	books    map[string]*book.OrderBook
}

// NewLiveBooks creates an empty set of books, each created at tickSize on
// first use.
func NewLiveBooks(tickSize int64) *LiveBooks {
	return &LiveBooks{
		tickSize: tickSize,
		books:    make(map[string]*book.OrderBook),
	}
}

func (l *LiveBooks) bookFor(symbol string) *book.OrderBook {
	b, ok := l.books[symbol]
	if !ok {
		b = book.New(symbol, l.tickSize)
		l.books[symbol] = b
	}
	return b
}

// PlaceOrder submits a new order to symbol's book and returns its assigned
// id along with any trades it produced.
func (l *LiveBooks) PlaceOrder(symbol string, side book.Side, typ book.Type, price int64, quantity uint64, clientID string) (uint64, []book.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bookFor(symbol)
	return b.AddOrder(side, price, quantity, typ, clientID)
}

// CancelOrder cancels orderID on symbol's book, reporting whether it was
// found and resting.
func (l *LiveBooks) CancelOrder(symbol string, orderID uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.books[symbol]
	if !ok {
		return false
	}
	return b.CancelOrder(orderID)
}

// Book exposes the underlying book for a symbol for read-only reporting
// (e.g. LogBook requests), creating it if absent.
func (l *LiveBooks) Book(symbol string) *book.OrderBook {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bookFor(symbol)
}

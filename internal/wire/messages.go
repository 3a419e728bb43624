// Package wire implements the exchange's TCP front end: a small binary
// message protocol plus an errgroup worker pool handling connections, with
// the session handler run under a tomb, adapted from the teacher's own net package so the matching
// engine can be driven live instead of only by a DataSource replay. The
// core OrderBook never imports this package — it is ambient
// infrastructure sitting in front of it.
package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"

	"fenrir/internal/book"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for specified payload length")
)

// MessageType tags the wire message kind.
type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	LogBook
)

// ReportMessageType tags a server->client report.
type ReportMessageType int

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

// Message is any parsed wire message.
type Message interface {
	GetType() MessageType
}

// Fixed header/body lengths, matching the teacher's layout.
const (
	BaseMessageHeaderLen        = 2
	NewOrderMessageHeaderLen    = 2 + 2 + 4 + 8 + 8 + 1 + 1
	CancelOrderMessageHeaderLen = 2 + 2 + 8
)

// BaseMessage carries just the tag.
type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

// ParseMessage dispatches on the leading 2-byte type tag.
func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// NewOrderMessage requests a new order on symbol.
type NewOrderMessage struct {
	BaseMessage
	Side        book.Side
	Type        book.Type
	Symbol      string
	LimitPrice  float64
	Quantity    uint64
	UsernameLen uint8
	Username    string
}

// ClientOrderID mints a fresh client order id for the message.
func (m *NewOrderMessage) ClientOrderID() string {
	return uuid.New().String()
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.Type = book.Type(binary.BigEndian.Uint16(msg[0:2]))
	m.Side = book.Side(binary.BigEndian.Uint16(msg[2:4]))
	m.Symbol = string(msg[4:8])
	m.LimitPrice = math.Float64frombits(binary.BigEndian.Uint64(msg[8:16]))
	m.Quantity = binary.BigEndian.Uint64(msg[16:24])
	m.UsernameLen = uint8(msg[24])

	expectedTotalLen := NewOrderMessageHeaderLen + int(m.UsernameLen)
	if len(msg) < expectedTotalLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Username = string(msg[25 : 25+m.UsernameLen])
	return m, nil
}

// CancelOrderMessage requests cancellation of an order on symbol.
type CancelOrderMessage struct {
	BaseMessage
	Symbol  string
	OrderID uint64
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.Symbol = string(msg[0:4])
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])
	return m, nil
}

// Report is a server->client execution or error report.
type Report struct {
	MessageType ReportMessageType
	Side        book.Side
	Timestamp   int64
	Quantity    uint64
	Price       float64
	Symbol      string
	OrderID     uint64
	ErrStr      string
}

const reportFixedHeaderLen = 1 + 1 + 8 + 8 + 8 + 4 + 8 + 4

// Serialize converts the report into its wire representation.
func (r *Report) Serialize() []byte {
	total := reportFixedHeaderLen + len(r.ErrStr)
	buf := make([]byte, total)

	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.Timestamp))
	binary.BigEndian.PutUint64(buf[10:18], r.Quantity)
	binary.BigEndian.PutUint64(buf[18:26], math.Float64bits(r.Price))

	symBytes := make([]byte, 4)
	copy(symBytes, r.Symbol)
	copy(buf[26:30], symBytes)

	binary.BigEndian.PutUint64(buf[30:38], r.OrderID)
	binary.BigEndian.PutUint32(buf[38:42], uint32(len(r.ErrStr)))
	copy(buf[reportFixedHeaderLen:], r.ErrStr)

	return buf
}

// NewExecutionReport builds a report for a single side of a trade.
func NewExecutionReport(symbol string, side book.Side, t book.Trade, orderID uint64) Report {
	return Report{
		MessageType: ExecutionReport,
		Side:        side,
		Timestamp:   t.Timestamp,
		Quantity:    t.Quantity,
		Price:       book.PriceToDouble(t.Price),
		Symbol:      symbol,
		OrderID:     orderID,
	}
}

// NewErrorReport builds an error report with no associated trade.
func NewErrorReport(err error) Report {
	return Report{MessageType: ErrorReport, ErrStr: err.Error()}
}

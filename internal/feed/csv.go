// Package feed provides DataSource implementations that turn external
// market data into sim.Event values delivered in non-decreasing timestamp
// order. The reference implementation reads the columns
// timestamp_ns,symbol,type,side,price,quantity,order_id from a CSV file.
package feed

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/sim"
)

// csvRowType is the recognized CSV type column value.
type csvRowType string

const (
	rowAdd    csvRowType = "ADD"
	rowModify csvRowType = "MODIFY"
	rowCancel csvRowType = "CANCEL"
	rowTrade  csvRowType = "TRADE"
	rowEOD    csvRowType = "EOD"
)

// CSVSource is a DataSource that parses every row eagerly, so HasNext,
// Next, and Reset can all be served from memory.
type CSVSource struct {
	rows [][]string
	pos  int
}

// NewCSVSource parses every row from r eagerly, so HasNext/Next/Reset can
// all be served from memory without re-reading the source.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}
	return &CSVSource{rows: rows}, nil
}

func isHeader(row []string) bool {
	return len(row) > 0 && row[0] == "timestamp_ns"
}

// HasNext reports whether more rows remain.
func (s *CSVSource) HasNext() bool {
	return s.pos < len(s.rows)
}

// Next parses and returns the next row as an Event. A malformed or
// too-short row yields a no-op MarketData event rather than an error, per
// the feed contract.
func (s *CSVSource) Next() (sim.Event, error) {
	row := s.rows[s.pos]
	s.pos++
	return parseRow(row), nil
}

// Reset rewinds to the first row.
func (s *CSVSource) Reset() error {
	s.pos = 0
	return nil
}

const expectedColumns = 7

func parseRow(row []string) sim.Event {
	if len(row) < expectedColumns {
		log.Warn().Strs("row", row).Msg("feed row too short, emitting no-op event")
		return noopEvent()
	}

	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		log.Warn().Err(err).Str("field", row[0]).Msg("unparsable timestamp, emitting no-op event")
		return noopEvent()
	}
	symbol := row[1]
	typ := csvRowType(row[2])
	side := parseSide(row[3])

	price, priceErr := strconv.ParseInt(row[4], 10, 64)
	quantity, qtyErr := strconv.ParseUint(row[5], 10, 64)
	orderID, idErr := strconv.ParseUint(row[6], 10, 64)

	switch typ {
	case rowAdd:
		if priceErr != nil || qtyErr != nil || idErr != nil {
			return noopEvent()
		}
		return sim.Event{
			Kind:      sim.KindMarketData,
			Timestamp: ts,
			Symbol:    symbol,
			Update: &sim.MarketDataUpdate{
				Kind:     sim.UpdateAddOrder,
				OrderID:  orderID,
				Side:     side,
				Price:    price,
				Quantity: quantity,
			},
		}
	case rowModify:
		if qtyErr != nil || idErr != nil {
			return noopEvent()
		}
		var newPrice *int64
		if priceErr == nil {
			newPrice = &price
		}
		return sim.Event{
			Kind:      sim.KindMarketData,
			Timestamp: ts,
			Symbol:    symbol,
			Update: &sim.MarketDataUpdate{
				Kind:     sim.UpdateModifyOrder,
				OrderID:  orderID,
				Quantity: quantity,
				NewPrice: newPrice,
			},
		}
	case rowCancel:
		if idErr != nil {
			return noopEvent()
		}
		return sim.Event{
			Kind:      sim.KindMarketData,
			Timestamp: ts,
			Symbol:    symbol,
			Update: &sim.MarketDataUpdate{
				Kind:    sim.UpdateCancelOrder,
				OrderID: orderID,
			},
		}
	case rowTrade:
		// The feed's own side column is authoritative for aggressor side —
		// resolved by the feed format rather than inferred from order id
		// parity.
		if priceErr != nil || qtyErr != nil {
			return noopEvent()
		}
		trade := book.Trade{
			Symbol:        symbol,
			AggressorSide: side,
			Price:         price,
			Quantity:      quantity,
			Timestamp:     ts,
		}
		return sim.Event{
			Kind:      sim.KindFill,
			Timestamp: ts,
			Symbol:    symbol,
			Trade:     &trade,
		}
	case rowEOD:
		return sim.Event{Kind: sim.KindEndOfDay, Timestamp: ts, Symbol: symbol}
	default:
		return sim.Event{
			Kind:      sim.KindMarketData,
			Timestamp: ts,
			Symbol:    symbol,
			Update:    &sim.MarketDataUpdate{Kind: sim.UpdateNoop},
		}
	}
}

func parseSide(s string) book.Side {
	if s == "ASK" {
		return book.Ask
	}
	return book.Bid
}

func noopEvent() sim.Event {
	return sim.Event{
		Kind:   sim.KindMarketData,
		Update: &sim.MarketDataUpdate{Kind: sim.UpdateNoop},
	}
}

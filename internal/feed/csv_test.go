package feed_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/feed"
	"fenrir/internal/sim"
)

const sampleCSV = `timestamp_ns,symbol,type,side,price,quantity,order_id
1,AAPL,ADD,BID,10000,50,1
2,AAPL,ADD,ASK,9990,40,2
3,AAPL,CANCEL,BID,0,0,1
4,AAPL,TRADE,ASK,10000,10,0
5,AAPL,EOD,BID,0,0,0
6,AAPL,WHATEVER,BID,0,0,0
`

func TestCSVSourceParsesRecognizedTypes(t *testing.T) {
	src, err := feed.NewCSVSource(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var events []sim.Event
	for src.HasNext() {
		ev, err := src.Next()
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 6)

	assert.Equal(t, sim.KindMarketData, events[0].Kind)
	assert.Equal(t, sim.UpdateAddOrder, events[0].Update.Kind)
	assert.Equal(t, uint64(1), events[0].Update.OrderID)
	assert.Equal(t, book.Bid, events[0].Update.Side)

	assert.Equal(t, sim.UpdateCancelOrder, events[2].Update.Kind)
	assert.Equal(t, uint64(1), events[2].Update.OrderID)

	assert.Equal(t, sim.KindFill, events[3].Kind)
	require.NotNil(t, events[3].Trade)
	assert.Equal(t, book.Ask, events[3].Trade.AggressorSide)
	assert.Equal(t, uint64(10), events[3].Trade.Quantity)

	assert.Equal(t, sim.KindEndOfDay, events[4].Kind)

	assert.Equal(t, sim.KindMarketData, events[5].Kind)
	assert.Equal(t, sim.UpdateNoop, events[5].Update.Kind)
}

func TestCSVSourceResetRewinds(t *testing.T) {
	src, err := feed.NewCSVSource(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	for src.HasNext() {
		_, _ = src.Next()
	}
	assert.False(t, src.HasNext())

	require.NoError(t, src.Reset())
	assert.True(t, src.HasNext())
}

func TestCSVSourceShortRowIsNoop(t *testing.T) {
	src, err := feed.NewCSVSource(strings.NewReader("timestamp_ns,symbol,type,side,price,quantity,order_id\n1,AAPL,ADD\n"))
	require.NoError(t, err)

	ev, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, sim.KindMarketData, ev.Kind)
	assert.Equal(t, sim.UpdateNoop, ev.Update.Kind)
}

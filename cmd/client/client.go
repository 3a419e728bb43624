// Command client is a minimal interactive driver for the live wire server:
// it places or cancels an order and prints execution/error reports as they
// arrive.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"fenrir/internal/book"
	"fenrir/internal/wire"
)

func main() {
	serverAddr := pflag.String("server", "127.0.0.1:9001", "address of the exchange server")
	action := pflag.String("action", "place", "action to perform: [place, cancel, log]")

	symbol := pflag.String("symbol", "AAPL", "ticker symbol (max 4 chars)")
	sideStr := pflag.String("side", "buy", "order side: buy or sell")
	typeStr := pflag.String("type", "limit", "order type: limit or market")
	price := pflag.Float64("price", 100.0, "limit price")
	qtyStr := pflag.String("qty", "10", "quantity or comma-separated list (e.g. 10,20,50)")

	orderID := pflag.Uint64("order-id", 0, "id of the order to cancel")

	pflag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	side := book.Bid
	if strings.ToLower(*sideStr) == "sell" {
		side = book.Ask
	}
	orderType := book.Limit
	if strings.ToLower(*typeStr) == "market" {
		orderType = book.Market
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, q := range parseQuantities(*qtyStr) {
			if err := sendNewOrder(conn, *symbol, side, orderType, *price, q); err != nil {
				log.Printf("failed to place order (qty %d): %v", q, err)
			} else {
				fmt.Printf("-> sent %s order: %s %d @ %.2f\n", strings.ToUpper(*sideStr), *symbol, q, *price)
			}
			time.Sleep(5 * time.Millisecond)
		}
	case "cancel":
		if err := sendCancelOrder(conn, *symbol, *orderID); err != nil {
			log.Printf("failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> sent cancel request for order %d\n", *orderID)
		}
	case "log":
		if err := sendLog(conn); err != nil {
			log.Printf("failed to send log request: %v", err)
		} else {
			fmt.Println("-> sent log request")
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (press ctrl+c to exit)")
	select {}
}

func parseQuantities(input string) []uint64 {
	var result []uint64
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("warning: invalid quantity %q, skipping", p)
		}
	}
	return result
}

func sendNewOrder(conn net.Conn, symbol string, side book.Side, typ book.Type, price float64, qty uint64) error {
	username := "client"
	totalLen := 2 + wire.NewOrderMessageHeaderLen + len(username)
	buf := make([]byte, totalLen)

	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.NewOrder))
	binary.BigEndian.PutUint16(buf[2:4], uint16(typ))
	binary.BigEndian.PutUint16(buf[4:6], uint16(side))

	symBytes := make([]byte, 4)
	copy(symBytes, symbol)
	copy(buf[6:10], symBytes)

	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(price))
	binary.BigEndian.PutUint64(buf[18:26], qty)
	buf[26] = uint8(len(username))
	copy(buf[27:], username)

	_, err := conn.Write(buf)
	return err
}

func sendCancelOrder(conn net.Conn, symbol string, orderID uint64) error {
	buf := make([]byte, 2+wire.CancelOrderMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.CancelOrder))

	symBytes := make([]byte, 4)
	copy(symBytes, symbol)
	copy(buf[2:6], symBytes)

	binary.BigEndian.PutUint64(buf[6:14], orderID)

	_, err := conn.Write(buf)
	return err
}

func sendLog(conn net.Conn) error {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.LogBook))
	_, err := conn.Write(buf)
	return err
}

func readReports(conn net.Conn) {
	for {
		headerBuf := make([]byte, 42)
		if _, err := io.ReadFull(conn, headerBuf); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		msgType := wire.ReportMessageType(headerBuf[0])
		side := book.Side(headerBuf[1])
		quantity := binary.BigEndian.Uint64(headerBuf[10:18])
		price := math.Float64frombits(binary.BigEndian.Uint64(headerBuf[18:26]))
		symbol := strings.TrimRight(string(headerBuf[26:30]), "\x00")
		orderID := binary.BigEndian.Uint64(headerBuf[30:38])
		errStrLen := binary.BigEndian.Uint32(headerBuf[38:42])

		var errStr string
		if errStrLen > 0 {
			errBuf := make([]byte, errStrLen)
			if _, err := io.ReadFull(conn, errBuf); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
			errStr = string(errBuf)
		}

		if msgType == wire.ErrorReport {
			fmt.Printf("\n[SERVER ERROR] %s\n", errStr)
			continue
		}
		sideStr := "BUY"
		if side == book.Ask {
			sideStr = "SELL"
		}
		fmt.Printf("\n[EXECUTION] %s %s | qty: %d | price: %.2f | order id: %d\n", sideStr, symbol, quantity, price, orderID)
	}
}

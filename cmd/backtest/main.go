// Command backtest replays a CSV market-data feed through the simulation
// engine with a configurable strategy and commission rate, printing the
// resulting performance report.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fenrir/internal/feed"
	"fenrir/internal/metrics"
	"fenrir/internal/portfolio"
	"fenrir/internal/sim"
	"fenrir/internal/strategy"
)

func main() {
	pflag.String("data", "", "path to the CSV market data file (required)")
	pflag.String("symbol", "AAPL", "symbol the feed replays")
	pflag.Int64("tick-size", 1, "integer price tick size for the symbol's book")
	pflag.Float64("cash", 100000, "starting cash balance")
	pflag.Float64("commission-rate", 0, "commission rate applied per unit notional traded")
	pflag.Float64("imbalance-threshold", 0.2, "imbalance strategy entry/exit threshold")
	pflag.Float64("max-position", 500, "imbalance strategy max absolute position")
	pflag.Float64("order-size", 10, "imbalance strategy order size")
	pflag.Parse()

	v := viper.New()
	v.SetEnvPrefix("fenrir")
	v.AutomaticEnv()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		log.Fatal().Err(err).Msg("unable to bind flags")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	dataPath := v.GetString("data")
	if dataPath == "" {
		fmt.Fprintln(os.Stderr, "missing required --data flag")
		pflag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(dataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dataPath).Msg("unable to open data file")
	}
	defer f.Close()

	source, err := feed.NewCSVSource(f)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to parse data file")
	}

	p := portfolio.New(v.GetFloat64("cash"), v.GetFloat64("commission-rate"))
	engine := sim.New(p)

	strat := strategy.NewImbalanceStrategy()
	strat.Initialize(strategy.Params{
		"threshold":    v.GetFloat64("imbalance-threshold"),
		"max_position": v.GetFloat64("max-position"),
		"order_size":   v.GetFloat64("order-size"),
		"tick_size":    float64(v.GetInt64("tick-size")),
	})
	engine.RegisterStrategy(strat)

	symbol := v.GetString("symbol")
	engine.Book(symbol, v.GetInt64("tick-size"))

	result := engine.Run(source)
	printReport(result, p, symbol)
}

func printReport(result metrics.BacktestResult, p *portfolio.Portfolio, symbol string) {
	fmt.Printf("total return:      %.4f\n", result.TotalReturn)
	fmt.Printf("annualized return: %.4f\n", result.AnnualizedReturn)
	fmt.Printf("volatility:        %.4f\n", result.Volatility)
	fmt.Printf("sharpe:            %.4f\n", result.Sharpe)
	fmt.Printf("sortino:           %.4f\n", result.Sortino)
	fmt.Printf("calmar:            %.4f\n", result.Calmar)
	fmt.Printf("max drawdown:      %.4f\n", result.MaxDrawdown)
	fmt.Printf("turnover:          %.4f\n", result.Turnover)
	fmt.Printf("capacity estimate: %.2f\n", result.CapacityEstimate)
	fmt.Printf("trade count:       %d\n", result.TradeCount)

	equity := p.EquityDecimal(map[string]float64{symbol: 0})
	fmt.Printf("final equity:      %s\n", equity.String())
}

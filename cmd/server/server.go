// Command server runs the live matching engine behind a TCP front end,
// accepting NewOrder/CancelOrder wire messages and reporting fills back to
// the originating connection.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fenrir/internal/wire"
)

func main() {
	pflag.String("address", "0.0.0.0", "address to bind the TCP listener to")
	pflag.Int("port", 9001, "port to bind the TCP listener to")
	pflag.Int("workers", 10, "number of concurrent connection handlers")
	pflag.Int64("tick-size", 1, "integer price tick size applied to every symbol's book")
	pflag.Parse()

	v := viper.New()
	v.SetEnvPrefix("fenrir")
	v.AutomaticEnv()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		log.Fatal().Err(err).Msg("unable to bind flags")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	books := wire.NewLiveBooks(v.GetInt64("tick-size"))
	srv := wire.New(v.GetString("address"), v.GetInt("port"), books, v.GetInt("workers"))

	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("server exited with error")
		}
	}
}

// Command import-stats loads the original bot's stats.json and users.json
// into a giftdraw store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtding233/giftdraw/internal/legacy"
	"github.com/xtding233/giftdraw/internal/platform/logging"
)

func main() {
	cfg, err := legacy.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(os.Stderr, "info", "text")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := legacy.Run(ctx, cfg, os.Stdout, log); err != nil {
		log.WithError(err).Error("import failed")
		stop()
		os.Exit(1)
	}
}

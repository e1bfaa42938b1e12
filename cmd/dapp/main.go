// Command dapp reads and changes Profile resources on the Flow blockchain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowdapp/profile-dapp/pkg/commands"
	"github.com/flowdapp/profile-dapp/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lggr, level, err := (&logger.Config{Console: true}).NewAtomic()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lggr.Sync() }()

	if err := commands.NewRootCommand(lggr, &level).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop and Sync are done by hand
	}
}

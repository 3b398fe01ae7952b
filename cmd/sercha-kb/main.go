// Command sercha-kb compresses a local document corpus into a knowledge
// pack and answers retrieval queries against it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=1.2.3".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetFactory(build)

	if err := cli.Execute(ctx); err != nil {
		cli.PrintError(err)
		stop()
		os.Exit(1)
	}
}

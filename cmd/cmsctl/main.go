package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/agencyhq/agencysite/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Root(cli.OpenApp, nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/furiosa-ai/furiosa-client/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}

	stop()
	os.Exit(cli.ExitCode(err))
}

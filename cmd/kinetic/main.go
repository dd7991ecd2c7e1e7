package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/kinetic/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run executes the command line and maps the outcome to an exit code.
// An interrupted run exits with 130 like a shell job killed by SIGINT.
func run(ctx context.Context) int {
	c := cli.New(os.Stderr, cli.LogInfo)
	err := c.RootCommand().ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		fmt.Fprintln(os.Stderr, "kinetic:", err)
		return 1
	}
}

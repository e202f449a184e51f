package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/olimci/fiberforge/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.Execute(ctx, os.Args)
	stop()

	os.Exit(cmd.ExitCode(err))
}

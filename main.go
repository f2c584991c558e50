package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/PolarWolf314/cloudencrypt/cmd"
	"github.com/PolarWolf314/cloudencrypt/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.RootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cmd.ErrReported) {
			fmt.Fprintln(os.Stderr, ui.Error.Sprint("Error: ")+err.Error())
		}
		stop()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	ctx := context.Background()

	appl := rootCommand()

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}

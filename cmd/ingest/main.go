package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/reportload/cmd/ingest/cmd"
	_ "github.com/JonMunkholm/reportload/internal/reports" // Register all report and master types
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cmd.NewRootCmd(version + " (commit " + commit + ")")
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cmd.ErrorText(err))
		stop()
		os.Exit(1)
	}
}

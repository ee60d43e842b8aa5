package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/commskill/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		os.Stderr.WriteString("commskill: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/williamokano/backup-tool/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.Deps{})
	stop()
	os.Exit(code)
}

// Command studioctl is the operator CLI for the credits ledger: manual
// grants, ledger inspection, reconciliation, dev tokens and migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cc := newCommandContext(openPostgres)
	err := newRootCommand(cc).ExecuteContext(ctx)
	cc.closeBackend()
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

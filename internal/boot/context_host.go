//go:build !baremetal

package boot

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Context is cancelled on SIGINT or SIGTERM.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

//go:build baremetal

package boot

import (
	"context"
	"time"
)

// Context never ends on a microcontroller. It waits briefly first so the
// USB console can enumerate before the boot log.
func Context() (context.Context, context.CancelFunc) {
	time.Sleep(2 * time.Second)
	return context.WithCancel(context.Background())
}

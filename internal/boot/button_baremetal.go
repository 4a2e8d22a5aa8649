//go:build baremetal

package boot

import (
	"context"
	"io"
	"log/slog"

	"irqdemo-go/hal"
)

// DriveButton is a no-op on hardware; the button is real.
func DriveButton(ctx context.Context, _ io.Reader, _ hal.IRQPin, _ bool, _ *slog.Logger) error {
	return nil
}

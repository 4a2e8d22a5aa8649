//go:build baremetal

package critical

import "runtime/interrupt"

// Section masks all interrupts between Enter and Exit. Nested use from a
// higher-priority interrupt is safe: the saved state is restored on Exit.
type Section struct{}

// Token carries the interrupt state saved by Enter.
type Token = interrupt.State

func (*Section) Enter() Token { return interrupt.Disable() }

func (*Section) Exit(t Token) { interrupt.Restore(t) }

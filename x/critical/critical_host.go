//go:build !baremetal

package critical

import (
	"runtime"
	"sync/atomic"
)

// Section is a spin-based stand-in for an interrupt mask. The zero value is
// ready to use.
type Section struct {
	held atomic.Bool
}

// Token is unused on host targets.
type Token struct{}

func (s *Section) Enter() Token {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	return Token{}
}

func (s *Section) Exit(Token) { s.held.Store(false) }

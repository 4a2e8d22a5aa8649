package hal

import (
	"sync"
	"time"
)

// SimPin implements IRQPin in memory. Set/Fire deliver the configured edges
// to the handler synchronously, standing in for a hardware interrupt.
type SimPin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	irqEdge Edge
	irqFunc func()
	irqs    int
}

func NewSimPin(number int, level bool) *SimPin {
	return &SimPin{number: number, level: level}
}

func (p *SimPin) ConfigureInput(_ Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *SimPin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irq != nil && irqWanted(p.irqEdge, edgeFrom(old, level))
	if want {
		p.irqs++
	}
	p.mu.Unlock()
	if want {
		irq()
	}
}

func (p *SimPin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *SimPin) Toggle() { p.Set(!p.Get()) }

func (p *SimPin) Number() int { return p.number }

func (p *SimPin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// IRQArmed reports whether an interrupt handler is installed.
func (p *SimPin) IRQArmed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqFunc != nil
}

// IRQCount is the number of edges delivered to a handler.
func (p *SimPin) IRQCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqs
}

// Bounce drives a contact-bounce train: each level is applied, spaced by gap.
func (p *SimPin) Bounce(gap time.Duration, levels ...bool) {
	for i, l := range levels {
		if i > 0 && gap > 0 {
			time.Sleep(gap)
		}
		p.Set(l)
	}
}

func edgeFrom(old, new bool) Edge {
	switch {
	case !old && new:
		return EdgeRising
	case old && !new:
		return EdgeFalling
	default:
		return EdgeNone
	}
}

func irqWanted(cfg, seen Edge) bool {
	switch cfg {
	case EdgeBoth:
		return seen == EdgeRising || seen == EdgeFalling
	default:
		return cfg != EdgeNone && cfg == seen
	}
}

// SimPWM records the configured period and the last duty value.
type SimPWM struct {
	mu     sync.Mutex
	period time.Duration
	top    uint32
	value  uint32
	writes int
}

func NewSimPWM(top uint32) *SimPWM { return &SimPWM{top: top} }

func (p *SimPWM) Configure(period time.Duration) error {
	p.mu.Lock()
	p.period = period
	p.mu.Unlock()
	return nil
}

func (p *SimPWM) Top() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.top
}

func (p *SimPWM) Set(value uint32) {
	p.mu.Lock()
	if value > p.top {
		value = p.top
	}
	p.value = value
	p.writes++
	p.mu.Unlock()
}

func (p *SimPWM) Value() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *SimPWM) Period() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.period
}

func (p *SimPWM) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

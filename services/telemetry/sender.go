package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"irqdemo-go/x/mathx"
	"irqdemo-go/x/shmring"
)

type SenderConfig struct {
	Addr      string
	RedialMin time.Duration
	RedialMax time.Duration
	// Dial defaults to a net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

type SenderStats struct {
	Dials     uint32
	DialFails uint32
	Bytes     uint32
	Lost      uint32 // bytes taken from the ring but not written
}

// Sender drains a ring into a TCP connection, redialling with exponential
// backoff whenever the connection fails.
type Sender struct {
	ring *shmring.Ring
	log  *slog.Logger
	cfg  SenderConfig

	dials, dialFails, bytes, lost atomic.Uint32
}

func NewSender(ring *shmring.Ring, log *slog.Logger, cfg SenderConfig) *Sender {
	if cfg.RedialMin <= 0 {
		cfg.RedialMin = 250 * time.Millisecond
	}
	cfg.RedialMax = mathx.Max(cfg.RedialMax, cfg.RedialMin)
	if cfg.Dial == nil {
		var d net.Dialer
		cfg.Dial = d.DialContext
	}
	return &Sender{ring: ring, log: log, cfg: cfg}
}

func (s *Sender) Run(ctx context.Context) error {
	backoff := s.cfg.RedialMin
	for {
		s.dials.Add(1)
		conn, err := s.cfg.Dial(ctx, "tcp", s.cfg.Addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.dialFails.Add(1)
			s.log.Warn("connect failed", "addr", s.cfg.Addr, "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = mathx.Min(backoff*2, s.cfg.RedialMax)
			continue
		}
		backoff = s.cfg.RedialMin
		s.log.Info("connected", "addr", s.cfg.Addr)

		err = s.pump(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("connection lost", "addr", s.cfg.Addr, "err", err)
	}
}

func (s *Sender) pump(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.SetWriteDeadline(time.Unix(1, 0)) })
	defer stop()

	buf := make([]byte, 512)
	for {
		n := s.ring.TryReadInto(buf)
		if n == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.ring.Readable():
			}
			continue
		}
		w, err := conn.Write(buf[:n])
		s.bytes.Add(uint32(w))
		if err != nil {
			s.lost.Add(uint32(n - w))
			return err
		}
		if w < n {
			s.lost.Add(uint32(n - w))
			return errors.New("short write")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Sender) Stats() SenderStats {
	return SenderStats{
		Dials:     s.dials.Load(),
		DialFails: s.dialFails.Load(),
		Bytes:     s.bytes.Load(),
		Lost:      s.lost.Load(),
	}
}

// Package telemetry samples a motion sensor on the dispatcher, buffers the
// encoded frames in a byte ring and streams them to a TCP collector.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"irqdemo-go/dispatch"
	"irqdemo-go/errcode"
	"irqdemo-go/x/shmring"
)

const ActSample dispatch.ActionID = 30

// MinRingSize is the smallest ring that holds one frame of the largest
// size the collector accepts.
const MinRingSize = maxJSONFrame

var errRingFull = errors.New("ring full, frame dropped")

type StreamerConfig struct {
	Interval time.Duration
	Codec    Codec
	RingSize int
	Sender   SenderConfig
}

type Streamer struct {
	disp  *dispatch.Dispatcher
	imu   IMU
	codec Codec
	ring  *shmring.Ring
	log   *slog.Logger
	cfg   StreamerConfig

	seq       int32
	frames    atomic.Uint32
	sampleErr atomic.Uint32

	sender *Sender
}

type StreamerStats struct {
	Frames       uint32
	SampleErrors uint32
	RingDrops    uint32
	Sender       SenderStats
}

func NewStreamer(d *dispatch.Dispatcher, imu IMU, log *slog.Logger, cfg StreamerConfig) *Streamer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Codec == nil {
		cfg.Codec = JSON{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	log = log.With("service", "telemetry")
	ring := shmring.NewAtLeast(max(cfg.RingSize, MinRingSize))
	return &Streamer{
		disp:   d,
		imu:    imu,
		codec:  cfg.Codec,
		ring:   ring,
		log:    log,
		cfg:    cfg,
		sender: NewSender(ring, log, cfg.Sender),
	}
}

func (s *Streamer) Register() error {
	return s.disp.Handle(ActSample, "telemetry.sample", s.sample)
}

// sample runs on the dispatcher.
func (s *Streamer) sample(int32) error {
	rec, err := Sample(s.imu, s.seq)
	if err != nil {
		s.sampleErr.Add(1)
		return err
	}
	s.seq++
	frame, err := s.cfg.Codec.Encode(rec)
	if err != nil {
		return err
	}
	if !s.ring.WriteFrame(frame) {
		return errcode.Wrap(errcode.QueueFull, "telemetry.sample", errRingFull)
	}
	s.frames.Add(1)
	return nil
}

// Run schedules sampling and runs the sender until ctx is done.
func (s *Streamer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.disp.Every(ctx, s.cfg.Interval, dispatch.Item(ActSample, 0))
	s.log.Info("streaming", "addr", s.cfg.Sender.Addr, "codec", s.codec.Name(), "interval", s.cfg.Interval)
	g.Go(func() error { return s.sender.Run(ctx) })
	return g.Wait()
}

func (s *Streamer) Stats() StreamerStats {
	return StreamerStats{
		Frames:       s.frames.Load(),
		SampleErrors: s.sampleErr.Load(),
		RingDrops:    s.ring.Drops(),
		Sender:       s.sender.Stats(),
	}
}

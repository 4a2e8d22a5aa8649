package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"irqdemo-go/errcode"
)

// Collector accepts streamer connections, decodes the concatenated frames
// and writes one JSON line per record to a sink.
type Collector struct {
	codec Codec
	log   *slog.Logger

	mu   sync.Mutex
	sink io.Writer

	records, decodeErrs, conns atomic.Uint32
}

type CollectorStats struct {
	Conns        uint32
	Records      uint32
	DecodeErrors uint32
}

func NewCollector(codec Codec, sink io.Writer, log *slog.Logger) *Collector {
	if codec == nil {
		codec = JSON{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Collector{codec: codec, sink: sink, log: log.With("service", "collector")}
}

// Serve accepts on ln until ctx is done, handling connections concurrently.
func (c *Collector) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			c.conns.Add(1)
			c.log.Info("connected by", "addr", conn.RemoteAddr().String())
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			g.Go(func() error {
				defer stop()
				defer conn.Close()
				if err := c.Consume(conn); err != nil {
					c.log.Warn("stream ended", "addr", conn.RemoteAddr().String(), "err", err)
				}
				return nil
			})
		}
	})
	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Consume decodes records from r until EOF or a fatal error. Corrupt frames
// are counted and skipped.
func (c *Collector) Consume(r io.Reader) error {
	dec := c.codec.NewDecoder(r)
	for {
		var rec Record
		err := dec.Decode(&rec)
		switch {
		case err == nil:
			if werr := c.emit(rec); werr != nil {
				return werr
			}
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, errcode.InvalidPayload):
			c.decodeErrs.Add(1)
			c.log.Warn("decode error", "err", err)
		default:
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (c *Collector) emit(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	c.mu.Lock()
	_, err = c.sink.Write(line)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.records.Add(1)
	return nil
}

func (c *Collector) Stats() CollectorStats {
	return CollectorStats{
		Conns:        c.conns.Load(),
		Records:      c.records.Load(),
		DecodeErrors: c.decodeErrs.Load(),
	}
}

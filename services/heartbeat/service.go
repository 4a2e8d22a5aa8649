// Package heartbeat periodically logs dispatcher health. The tick is
// submitted through the dispatcher like any other deferred event, so a
// stalled consumer shows up as missing heartbeats.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"irqdemo-go/bus"
	"irqdemo-go/dispatch"
	"irqdemo-go/services/config"
)

const ActBeat dispatch.ActionID = 1

// TopicStats carries the latest dispatch.Stats, retained.
var TopicStats = bus.T("dispatch", "stats")

type Service struct {
	disp     *dispatch.Dispatcher
	conn     *bus.Connection
	log      *slog.Logger
	interval time.Duration
	beats    uint32
}

func New(d *dispatch.Dispatcher, conn *bus.Connection, interval time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{disp: d, conn: conn, log: log.With("service", "heartbeat"), interval: interval}
}

// Register installs the heartbeat action. Call before the dispatcher runs.
func (s *Service) Register() error {
	return s.disp.Handle(ActBeat, "heartbeat", s.beat)
}

func (s *Service) beat(int32) error {
	s.beats++
	st := s.disp.Stats()
	s.log.Info("heartbeat",
		"beat", s.beats,
		"submitted", st.Submitted,
		"executed", st.Executed,
		"dropped", st.Dropped,
		"failed", st.Failed,
		"pending", st.Pending)
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(TopicStats, st, true))
	}
	return nil
}

// Beats is the number of heartbeats run. Consumer context only.
func (s *Service) Beats() uint32 { return s.beats }

// Run drives the periodic submission until ctx is done, restarting it
// whenever a new interval is published under config/heartbeat.
func (s *Service) Run(ctx context.Context) error {
	var cfgCh <-chan *bus.Message
	if s.conn != nil {
		sub := s.conn.Subscribe(config.Topic("heartbeat"))
		defer s.conn.Unsubscribe(sub)
		cfgCh = sub.Channel()
	}

	tickCtx, stop := context.WithCancel(ctx)
	s.disp.Every(tickCtx, s.interval, dispatch.Item(ActBeat, 0))

	for {
		select {
		case <-ctx.Done():
			stop()
			s.log.Info("heartbeat service stopping")
			return nil
		case msg, ok := <-cfgCh:
			if !ok {
				cfgCh = nil
				continue
			}
			hb, ok := msg.Payload.(config.HeartbeatConfig)
			if !ok || hb.Interval <= 0 || hb.Interval == s.interval {
				continue
			}
			stop()
			s.interval = hb.Interval
			tickCtx, stop = context.WithCancel(ctx)
			s.disp.Every(tickCtx, s.interval, dispatch.Item(ActBeat, 0))
			s.log.Info("heartbeat interval set", "interval", s.interval)
		}
	}
}

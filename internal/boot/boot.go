// Package boot wires the pieces every demo program shares: board, config,
// logger, bus, dispatcher and heartbeat.
package boot

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"irqdemo-go/bus"
	"irqdemo-go/dispatch"
	"irqdemo-go/hal"
	"irqdemo-go/services/config"
	"irqdemo-go/services/heartbeat"
)

type App struct {
	Board     hal.Board
	Config    *config.Config
	Log       *slog.Logger
	Bus       *bus.Bus
	Disp      *dispatch.Dispatcher
	Heartbeat *heartbeat.Service
}

// Start loads the config (cfgPath, or the board's embedded one when empty),
// installs the console logger as the default and builds the dispatcher.
func Start(cfgPath string) (*App, error) {
	board := hal.DefaultBoard()
	return StartWith(board, cfgPath)
}

func StartWith(board hal.Board, cfgPath string) (*App, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.ForBoard(board.Name)
	}
	if err != nil {
		return nil, err
	}

	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	log := slog.New(slog.NewTextHandler(board.Console, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)

	dc, err := cfg.Dispatch(log)
	if err != nil {
		return nil, err
	}
	disp, err := dispatch.New(dc)
	if err != nil {
		return nil, err
	}

	b := bus.NewBus(8)
	config.Publish(b.NewConnection("config"), cfg)

	hb := heartbeat.New(disp, b.NewConnection("heartbeat"), cfg.Heartbeat.Interval, log)
	if err := hb.Register(); err != nil {
		return nil, err
	}

	log.Info("boot", "board", board.Name, "dispatch_policy", dc.Policy.String(), "capacity", dc.Capacity)
	return &App{Board: board, Config: cfg, Log: log, Bus: b, Disp: disp, Heartbeat: hb}, nil
}

// Run starts the dispatcher, the heartbeat and every service, and waits
// until ctx is done or one of them fails. Register all handlers first.
func (a *App) Run(ctx context.Context, services ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.Disp.RunForever(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error { return a.Heartbeat.Run(ctx) })
	for _, svc := range services {
		g.Go(func() error { return svc(ctx) })
	}
	return g.Wait()
}

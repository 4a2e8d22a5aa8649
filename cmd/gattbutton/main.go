//go:build !darwin

// Command gattbutton serves the button and LED over BLE.
package main

import (
	"context"
	"flag"
	"os"

	"tinygo.org/x/bluetooth"

	"irqdemo-go/debounce"
	"irqdemo-go/internal/boot"
	"irqdemo-go/services/gattbutton"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (default: embedded board config)")
	flag.Parse()

	ctx, cancel := boot.Context()
	defer cancel()

	app, err := boot.Start(*cfgPath)
	if err != nil {
		println("boot:", err.Error())
		os.Exit(1)
	}
	log := app.Log

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		log.Error("bluetooth enable", "err", err)
		os.Exit(1)
	}

	window, policy := app.Config.DebounceSettings(0)
	gc := app.Config.GATT
	svc, err := gattbutton.New(app.Disp, gattbutton.AdapterStack{Adapter: adapter}, app.Board.LED,
		app.Bus.NewConnection("gattbutton"), log, gattbutton.Options{
			LocalName:  gc.LocalName,
			StudentID:  gc.StudentID,
			IDInterval: gc.IDInterval,
			Debounce:   debounce.Config{Window: window, Policy: policy},
			ActiveLow:  app.Board.ButtonActiveLow,
		})
	if err != nil {
		log.Error("gatt setup", "err", err)
		os.Exit(1)
	}
	if err := svc.Register(app.Board.Button); err != nil {
		log.Error("gatt register", "err", err)
		os.Exit(1)
	}
	log.Info("advertising", "name", gc.LocalName)

	err = app.Run(ctx, svc.Run, func(ctx context.Context) error {
		return boot.DriveButton(ctx, os.Stdin, app.Board.Button, app.Board.ButtonActiveLow, log)
	})
	if err != nil {
		log.Error("stopped", "err", err)
		os.Exit(1)
	}
}

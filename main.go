// Command irqdemo is the button/LED firmware: a debounced button interrupt
// feeds the dispatcher, a release toggles the LED, and the heartbeat
// reports dispatcher statistics.
package main

import (
	"context"
	"flag"
	"os"

	"irqdemo-go/internal/boot"
	"irqdemo-go/services/buttonled"
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

	window, policy := app.Config.DebounceSettings(app.Config.ButtonLED.Window)
	led := buttonled.New(app.Disp, app.Board.LED, app.Bus.NewConnection("buttonled"), log)
	if err := led.Register(app.Board.Button, buttonled.Options{
		Window:    window,
		Policy:    policy,
		ActiveLow: app.Board.ButtonActiveLow,
	}); err != nil {
		log.Error("button setup", "err", err)
		os.Exit(1)
	}
	defer led.Close()

	err = app.Run(ctx, func(ctx context.Context) error {
		return boot.DriveButton(ctx, os.Stdin, app.Board.Button, app.Board.ButtonActiveLow, log)
	})
	if err != nil {
		log.Error("stopped", "err", err)
		os.Exit(1)
	}
}

// Command pwmramp sweeps the PWM output duty cycle in the configured shape
// (sawtooth or triangle) until stopped.
package main

import (
	"flag"
	"os"

	"irqdemo-go/internal/boot"
	"irqdemo-go/services/pwmramp"
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
	pc := app.Config.PWM

	shape, err := pwmramp.ParseShape(pc.Shape)
	if err != nil {
		log.Error("pwm shape", "err", err)
		os.Exit(1)
	}
	r, err := pwmramp.New(app.Board.PWM, pwmramp.Config{
		Period:     pc.Period,
		Step:       pc.Step,
		MaxPercent: uint32(pc.MaxPercent),
		Shape:      shape,
	}, log)
	if err != nil {
		log.Error("pwm setup", "err", err)
		os.Exit(1)
	}

	if err := app.Run(ctx, r.Run); err != nil {
		log.Error("stopped", "err", err)
		os.Exit(1)
	}
}

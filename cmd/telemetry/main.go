// Command telemetry samples the IMU on the dispatcher and streams records
// to a collector over TCP.
package main

import (
	"flag"
	"os"

	"irqdemo-go/internal/boot"
	"irqdemo-go/services/telemetry"
	"irqdemo-go/x/strx"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (default: embedded board config)")
	addr := flag.String("addr", "", "collector address (overrides telemetry.addr)")
	flag.Parse()

	ctx, cancel := boot.Context()
	defer cancel()

	app, err := boot.Start(*cfgPath)
	if err != nil {
		println("boot:", err.Error())
		os.Exit(1)
	}
	log := app.Log
	tc := app.Config.Telemetry

	codec, err := telemetry.CodecByName(tc.Codec)
	if err != nil {
		log.Error("codec", "err", err)
		os.Exit(1)
	}

	var imu telemetry.IMU = &telemetry.SimIMU{}
	if app.Board.I2C != nil {
		if lsm, err := telemetry.NewLSM6(app.Board.I2C); err != nil {
			log.Warn("imu not found, using simulated motion", "err", err)
		} else {
			imu = lsm
		}
	}

	st := telemetry.NewStreamer(app.Disp, imu, log, telemetry.StreamerConfig{
		Interval: tc.Interval,
		Codec:    codec,
		RingSize: tc.RingSize,
		Sender: telemetry.SenderConfig{
			Addr:      strx.Coalesce(*addr, tc.Addr),
			RedialMin: tc.RedialMin,
			RedialMax: tc.RedialMax,
		},
	})
	if err := st.Register(); err != nil {
		log.Error("telemetry register", "err", err)
		os.Exit(1)
	}

	if err := app.Run(ctx, st.Run); err != nil {
		log.Error("stopped", "err", err)
		os.Exit(1)
	}
	s := st.Stats()
	log.Info("telemetry stopped", "frames", s.Frames, "ring_drops", s.RingDrops, "bytes", s.Sender.Bytes)
}

//go:build !baremetal

// Command telemetry-server accepts telemetry streams and prints one JSON
// line per record.
package main

import (
	"flag"
	"io"
	"log/slog"
	"net"
	"os"

	"irqdemo-go/internal/boot"
	"irqdemo-go/services/config"
	"irqdemo-go/services/telemetry"
	"irqdemo-go/x/strx"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (default: embedded host config)")
	listen := flag.String("listen", "", "listen address (overrides telemetry.listen)")
	out := flag.String("out", "", "append records to this file instead of stdout")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
	} else {
		cfg, err = config.ForBoard("host")
	}
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	codec, err := telemetry.CodecByName(cfg.Telemetry.Codec)
	if err != nil {
		log.Error("codec", "err", err)
		os.Exit(1)
	}

	var sink io.Writer = os.Stdout
	if *out != "" {
		f, err := os.OpenFile(*out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Error("open output", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		sink = f
	}

	addr := strx.Coalesce(*listen, cfg.Telemetry.Listen)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("listen", "addr", addr, "err", err)
		os.Exit(1)
	}
	log.Info("listening", "addr", ln.Addr().String(), "codec", codec.Name())

	ctx, cancel := boot.Context()
	defer cancel()

	c := telemetry.NewCollector(codec, sink, log)
	if err := c.Serve(ctx, ln); err != nil {
		log.Error("serve", "err", err)
	}
	s := c.Stats()
	log.Info("collector stopped", "conns", s.Conns, "records", s.Records, "decode_errors", s.DecodeErrors)
}

package config

import "irqdemo-go/bus"

const configPrefix = "config"

// Topic returns the bus topic a config section is retained under.
func Topic(section string) bus.Topic { return bus.T(configPrefix, section) }

// Publish retains each section of cfg on the bus under config/<section>.
func Publish(conn *bus.Connection, cfg *Config) {
	sections := map[string]any{
		"dispatcher": cfg.Dispatcher,
		"debounce":   cfg.Debounce,
		"heartbeat":  cfg.Heartbeat,
		"button_led": cfg.ButtonLED,
		"gatt":       cfg.GATT,
		"telemetry":  cfg.Telemetry,
		"pwm":        cfg.PWM,
	}
	for k, v := range sections {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
}

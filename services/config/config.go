// Package config loads YAML configuration for the demo programs. Values not
// present in a file keep their defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"irqdemo-go/debounce"
	"irqdemo-go/dispatch"
	"irqdemo-go/errcode"
	"irqdemo-go/services/telemetry"
)

type Config struct {
	Board      string           `yaml:"board"`
	LogLevel   string           `yaml:"log_level"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Debounce   DebounceConfig   `yaml:"debounce"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	ButtonLED  ButtonLEDConfig  `yaml:"button_led"`
	GATT       GATTConfig       `yaml:"gatt"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	PWM        PWMConfig        `yaml:"pwm"`
}

type DispatcherConfig struct {
	Capacity int           `yaml:"capacity"`
	Policy   string        `yaml:"policy"` // "idle_wait" or "poll"
	PollTick time.Duration `yaml:"poll_tick"`
}

type DebounceConfig struct {
	Window time.Duration `yaml:"window"`
	Policy string        `yaml:"policy"` // "fixed_window" or "reset_on_bounce"
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type ButtonLEDConfig struct {
	// Window replaces debounce.window for the button/LED demo.
	Window time.Duration `yaml:"window"`
}

type GATTConfig struct {
	LocalName  string        `yaml:"local_name"`
	StudentID  string        `yaml:"student_id"`
	IDInterval time.Duration `yaml:"id_interval"`
}

type TelemetryConfig struct {
	Addr      string        `yaml:"addr"`
	Listen    string        `yaml:"listen"`
	Interval  time.Duration `yaml:"interval"`
	Codec     string        `yaml:"codec"` // "json" or "cbor"
	RingSize  int           `yaml:"ring_size"`
	RedialMin time.Duration `yaml:"redial_min"`
	RedialMax time.Duration `yaml:"redial_max"`
}

type PWMConfig struct {
	Period time.Duration `yaml:"period"`
	Step   time.Duration `yaml:"step"`
	Shape  string        `yaml:"shape"` // "sawtooth" or "triangle"
	// MaxPercent is the highest duty reached, inclusive.
	MaxPercent int `yaml:"max_percent"`
}

func Default() *Config {
	return &Config{
		Board:    "host",
		LogLevel: "info",
		Dispatcher: DispatcherConfig{
			Capacity: dispatch.DefaultCapacity,
			Policy:   dispatch.IdleWait.String(),
			PollTick: dispatch.DefaultPollTick,
		},
		Debounce: DebounceConfig{
			Window: 50 * time.Millisecond,
			Policy: debounce.FixedWindow.String(),
		},
		Heartbeat: HeartbeatConfig{Interval: 2 * time.Second},
		ButtonLED: ButtonLEDConfig{Window: 3 * time.Second},
		GATT: GATTConfig{
			LocalName:  "GattButton",
			StudentID:  "B07901184",
			IDInterval: time.Second,
		},
		Telemetry: TelemetryConfig{
			Addr:      "192.168.50.252:30007",
			Listen:    ":30007",
			Interval:  100 * time.Millisecond,
			Codec:     "json",
			RingSize:  4096,
			RedialMin: 250 * time.Millisecond,
			RedialMax: 10 * time.Second,
		},
		PWM: PWMConfig{
			Period:     100 * time.Microsecond,
			Step:       100 * time.Microsecond,
			Shape:      "sawtooth",
			MaxPercent: 99,
		},
	}
}

// ForBoard returns the defaults overlaid with the embedded config of board.
func ForBoard(board string) (*Config, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "config.ForBoard", Msg: "no embedded config for board " + board}
	}
	return Parse(raw)
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.Overlay(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay unmarshals data onto c and revalidates.
func (c *Config) Overlay(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return errcode.Wrap(errcode.InvalidConfig, "config.parse", err)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	bad := func(format string, args ...any) error {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.Validate", Msg: fmt.Sprintf(format, args...)}
	}

	if _, err := c.Dispatch(nil); err != nil {
		return err
	}
	if _, err := debounce.ParsePolicy(c.Debounce.Policy); err != nil {
		return err
	}
	if c.Debounce.Window <= 0 {
		return bad("debounce.window must be > 0")
	}
	if c.ButtonLED.Window <= 0 {
		return bad("button_led.window must be > 0")
	}
	if c.Heartbeat.Interval <= 0 {
		return bad("heartbeat.interval must be > 0")
	}
	if c.GATT.IDInterval <= 0 {
		return bad("gatt.id_interval must be > 0")
	}
	if len(c.GATT.StudentID) > 9 {
		return bad("gatt.student_id must be at most 9 bytes, got %d", len(c.GATT.StudentID))
	}
	switch c.Telemetry.Codec {
	case "json", "cbor":
	default:
		return bad("telemetry.codec must be \"json\" or \"cbor\", got %q", c.Telemetry.Codec)
	}
	if c.Telemetry.Interval <= 0 || c.Telemetry.RingSize < telemetry.MinRingSize {
		return bad("telemetry.interval must be > 0 and ring_size >= %d", telemetry.MinRingSize)
	}
	if c.Telemetry.RedialMin <= 0 || c.Telemetry.RedialMax < c.Telemetry.RedialMin {
		return bad("telemetry.redial_min must be > 0 and <= redial_max")
	}
	switch c.PWM.Shape {
	case "sawtooth", "triangle":
	default:
		return bad("pwm.shape must be \"sawtooth\" or \"triangle\", got %q", c.PWM.Shape)
	}
	if c.PWM.Period <= 0 || c.PWM.Step <= 0 {
		return bad("pwm.period and pwm.step must be > 0")
	}
	if c.PWM.MaxPercent < 1 || c.PWM.MaxPercent > 100 {
		return bad("pwm.max_percent must be in 1..100")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Dispatch builds the dispatcher config from the dispatcher section.
func (c *Config) Dispatch(log *slog.Logger) (dispatch.Config, error) {
	p, err := dispatch.ParsePolicy(c.Dispatcher.Policy)
	if err != nil {
		return dispatch.Config{}, err
	}
	if c.Dispatcher.Capacity < 1 {
		return dispatch.Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.Dispatch", Msg: "dispatcher.capacity must be >= 1"}
	}
	if p == dispatch.Poll && c.Dispatcher.PollTick >= dispatch.MaxPollTick {
		return dispatch.Config{}, &errcode.E{C: errcode.InvalidConfig, Op: "config.Dispatch", Msg: "dispatcher.poll_tick must be < 100ms"}
	}
	return dispatch.Config{
		Capacity: c.Dispatcher.Capacity,
		Policy:   p,
		PollTick: c.Dispatcher.PollTick,
		Logger:   log,
	}, nil
}

// DebounceSettings returns the debounce settings with window overridden when
// override > 0.
func (c *Config) DebounceSettings(override time.Duration) (time.Duration, debounce.Policy) {
	p, _ := debounce.ParsePolicy(c.Debounce.Policy)
	w := c.Debounce.Window
	if override > 0 {
		w = override
	}
	return w, p
}

func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, &errcode.E{C: errcode.InvalidConfig, Op: "config.Validate",
		Msg: fmt.Sprintf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)}
}

// Package config loads the daemon configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/gpio"
	"github.com/sweeney/growbox/internal/mqtt"
)

// MaxScheduleMs bounds the schedule cadence so that no minute can pass
// between two checks.
const MaxScheduleMs = 30000

// Config is the whole configuration file.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Timing   TimingConfig   `yaml:"timing"`
	Pump     PumpConfig     `yaml:"pump"`
	Tank     TankConfig     `yaml:"tank"`
}

// MQTTConfig holds the broker connection.
type MQTTConfig struct {
	Broker              string        `yaml:"broker"`
	Username            string        `yaml:"username"`
	Password            string        `yaml:"password"`
	ClientID            string        `yaml:"client_id"`
	TopicPrefix         string        `yaml:"topic_prefix"`
	ReadingsTopic       string        `yaml:"readings_topic"`
	BufferSize          int           `yaml:"buffer_size"`
	SensorMaxAgeSeconds int           `yaml:"sensor_max_age_seconds"`
	SensorMaxAge        time.Duration `yaml:"-"`
}

// GPIOConfig holds the output wiring.
type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	ActiveLow bool   `yaml:"active_low"`
	Light     int    `yaml:"light"`
	Fan       int    `yaml:"fan"`
	Pump      int    `yaml:"pump"`
	Indicator int    `yaml:"indicator"`
}

// Pins returns the wiring as gpio.Pins.
func (g GPIOConfig) Pins() gpio.Pins {
	return gpio.Pins{Light: g.Light, Fan: g.Fan, Pump: g.Pump, Indicator: g.Indicator}
}

// HTTPConfig holds the status server. An empty Addr disables it.
type HTTPConfig struct {
	Addr            string  `yaml:"addr"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the settings database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// TimingConfig holds the loop cadences in milliseconds.
type TimingConfig struct {
	LoopMs           uint32        `yaml:"loop_ms"`
	SensorPollMs     uint32        `yaml:"sensor_poll_ms"`
	LightMs          uint32        `yaml:"light_ms"`
	FanMs            uint32        `yaml:"fan_ms"`
	ScheduleMs       uint32        `yaml:"schedule_ms"`
	SoilMs           uint32        `yaml:"soil_ms"`
	ErrorCheckMs     uint32        `yaml:"error_check_ms"`
	ErrorDebounceMs  uint32        `yaml:"error_debounce_ms"`
	DisplayMs        uint32        `yaml:"display_ms"`
	HeartbeatSeconds int           `yaml:"heartbeat_seconds"`
	Loop             time.Duration `yaml:"-"`
	Heartbeat        time.Duration `yaml:"-"`
}

// PumpConfig holds the pump calibration.
type PumpConfig struct {
	FlowRateMlPerMin uint16 `yaml:"flow_rate_ml_per_min"`
}

// TankConfig holds the reservoir geometry.
type TankConfig struct {
	HeightCm float64 `yaml:"height_cm"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from the given path and fills in defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://192.168.1.200:1883"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = mqtt.DefaultTopicPrefix
	}
	if c.MQTT.ReadingsTopic == "" {
		c.MQTT.ReadingsTopic = mqtt.TopicsFor(c.MQTT.TopicPrefix).Readings
	}
	if c.MQTT.BufferSize <= 0 {
		c.MQTT.BufferSize = mqtt.DefaultBufferSize
	}
	if c.MQTT.SensorMaxAgeSeconds <= 0 {
		c.MQTT.SensorMaxAgeSeconds = 30
	}
	c.MQTT.SensorMaxAge = time.Duration(c.MQTT.SensorMaxAgeSeconds) * time.Second

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = "gpiochip0"
	}
	def := gpio.DefaultPins()
	if c.GPIO.Light == 0 {
		c.GPIO.Light = def.Light
	}
	if c.GPIO.Fan == 0 {
		c.GPIO.Fan = def.Fan
	}
	if c.GPIO.Pump == 0 {
		c.GPIO.Pump = def.Pump
	}
	if c.GPIO.Indicator == 0 {
		c.GPIO.Indicator = def.Indicator
	}

	if c.HTTP.RateLimitPerSec <= 0 {
		c.HTTP.RateLimitPerSec = 10
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 5
	}

	if c.Database.Path == "" {
		c.Database.Path = "/var/lib/growbox/growbox.db"
	}

	t := &c.Timing
	setDefault(&t.LoopMs, 100)
	setDefault(&t.SensorPollMs, 5000)
	setDefault(&t.LightMs, 30000)
	setDefault(&t.FanMs, 30000)
	setDefault(&t.ScheduleMs, 15000)
	setDefault(&t.SoilMs, 60000)
	setDefault(&t.ErrorCheckMs, 5000)
	setDefault(&t.ErrorDebounceMs, 10000)
	setDefault(&t.DisplayMs, 500)
	if t.HeartbeatSeconds < 0 {
		t.HeartbeatSeconds = 0
	} else if t.HeartbeatSeconds == 0 {
		t.HeartbeatSeconds = 900
	}
	t.Loop = time.Duration(t.LoopMs) * time.Millisecond
	t.Heartbeat = time.Duration(t.HeartbeatSeconds) * time.Second

	if c.Pump.FlowRateMlPerMin == 0 {
		c.Pump.FlowRateMlPerMin = actuator.DefaultFlowRate
	}
	if c.Tank.HeightCm <= 0 {
		c.Tank.HeightCm = 30
	}
}

func setDefault(v *uint32, def uint32) {
	if *v == 0 {
		*v = def
	}
}

// Validate rejects configurations the controller cannot run with.
func (c *Config) Validate() error {
	if c.Pump.FlowRateMlPerMin == 0 {
		return errors.New("pump.flow_rate_ml_per_min must be non-zero")
	}
	if c.Timing.ScheduleMs > MaxScheduleMs {
		return fmt.Errorf("timing.schedule_ms %d exceeds %d: a minute could pass unchecked", c.Timing.ScheduleMs, MaxScheduleMs)
	}
	if c.Timing.LoopMs > c.Timing.ScheduleMs {
		return fmt.Errorf("timing.loop_ms %d is longer than timing.schedule_ms %d", c.Timing.LoopMs, c.Timing.ScheduleMs)
	}

	seen := make(map[int]string)
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"light", c.GPIO.Light},
		{"fan", c.GPIO.Fan},
		{"pump", c.GPIO.Pump},
		{"indicator", c.GPIO.Indicator},
	} {
		if p.pin < 0 {
			return fmt.Errorf("gpio.%s: invalid pin %d", p.name, p.pin)
		}
		if other, ok := seen[p.pin]; ok {
			return fmt.Errorf("gpio.%s and gpio.%s share pin %d", other, p.name, p.pin)
		}
		seen[p.pin] = p.name
	}

	if c.Tank.HeightCm <= 0 {
		return errors.New("tank.height_cm must be positive")
	}
	return nil
}

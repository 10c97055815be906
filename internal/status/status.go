// Package status provides a thread-safe status tracker for the growbox daemon.
// The control loop writes it; HTTP handlers and the front panel read it.
package status

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/logic"
	"github.com/sweeney/growbox/internal/settings"
)

// DefaultMessageTTL is how long a transient UI message stays visible.
const DefaultMessageTTL = 5 * time.Second

const messageKey = "message"

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	SensorPollMs int64
	HeartbeatMs  int64
	FlowRate     uint16
	Broker       string
	HTTPAddr     string
	Database     string
	DryRun       bool
}

// Counts are totals since startup.
type Counts struct {
	LightOn      int
	FanOn        int
	PumpRuns     int
	ErrorsRaised int
	Saves        int
}

// State is the part of the snapshot owned by the control loop.
type State struct {
	Outputs     actuator.Outputs
	Pump        actuator.PumpJob
	Readings    logic.Readings
	SensorError string
	Errors      []logic.SystemError
	Lines       []string
	Settings    settings.Settings
	Counts      Counts
	Ready       bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	State
	BootID        string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
	Message       string
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. Transient messages
// live in a TTL cache and disappear on their own.
type Tracker struct {
	mu       sync.RWMutex
	snap     Snapshot
	messages *cache.Cache
	ttl      time.Duration
}

// NewTracker creates a Tracker with the given start time, boot ID and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return NewTrackerWithTTL(startTime, bootID, cfg, DefaultMessageTTL)
}

// NewTrackerWithTTL is NewTracker with a custom message lifetime.
func NewTrackerWithTTL(startTime time.Time, bootID string, cfg Config, ttl time.Duration) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
		messages: cache.New(ttl, time.Minute),
		ttl:      ttl,
	}
}

// Update replaces the control-loop state.
func (t *Tracker) Update(st State) {
	st.Lines = append([]string(nil), st.Lines...)
	st.Errors = append([]logic.SystemError(nil), st.Errors...)
	st.Readings.Soil = append([]logic.SoilChannel(nil), st.Readings.Soil...)
	t.mu.Lock()
	t.snap.State = st
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetMessage shows msg until the message TTL passes.
func (t *Tracker) SetMessage(msg string) {
	t.messages.Set(messageKey, msg, cache.DefaultExpiration)
}

// Message returns the current transient message, or "".
func (t *Tracker) Message() string {
	if v, ok := t.messages.Get(messageKey); ok {
		return v.(string)
	}
	return ""
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	s.Message = t.Message()
	return s
}

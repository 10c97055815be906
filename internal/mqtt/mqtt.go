// Package mqtt provides MQTT publishing and subscribing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// DefaultTopicPrefix is the root of every growbox topic.
const DefaultTopicPrefix = "growbox"

// Topics are the MQTT topics the controller uses.
type Topics struct {
	// Events carries actuator and error transitions.
	Events string
	// System carries lifecycle events (startup, shutdown, heartbeat, LWT).
	System string
	// Readings is where sensor nodes publish their JSON readings.
	Readings string
}

// TopicsFor returns the topics under prefix.
func TopicsFor(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events:   prefix + "/events",
		System:   prefix + "/system",
		Readings: prefix + "/sensors/readings",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers messages published on a topic.
type Subscriber interface {
	Subscribe(topic string, handler func(payload []byte)) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event types.
const (
	EventOutput       = "OUTPUT"
	EventErrorActive  = "ERROR_ACTIVE"
	EventErrorCleared = "ERROR_CLEARED"
	EventSettings     = "SETTINGS_SAVED"
)

// Event is a controller transition: an output switching, an error raised or
// cleared, or settings being saved.
type Event struct {
	Timestamp time.Time
	Type      string // EventOutput, EventErrorActive, ...
	Subject   string // "LIGHT", "PUMP", "WATER_EMPTY", ...
	State     string // "ON", "OFF", "ACTIVE", "CLEAR"
	Detail    string // optional, e.g. "schedule 200 mL"
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Growbox EventPayload `json:"growbox"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Subject   string `json:"subject"`
	State     string `json:"state"`
	Detail    string `json:"detail,omitempty"`
}

// FormatPayload creates the JSON payload for an event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Growbox: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Type,
			Subject:   event.Subject,
			State:     event.State,
			Detail:    event.Detail,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

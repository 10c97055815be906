package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/growbox/internal/logic"
	"github.com/sweeney/growbox/internal/mqtt"
)

// DefaultMaxAge is how old a reading may be before it is considered stale.
const DefaultMaxAge = 30 * time.Second

// MQTTSource keeps the latest reading published on the readings topic.
// The MQTT client delivers on its own goroutine; Read is called from the
// control loop.
type MQTTSource struct {
	maxAge time.Duration
	now    func() time.Time

	mu       sync.Mutex
	latest   logic.Readings
	received time.Time
	have     bool
	rejected int
}

// NewMQTTSource subscribes to topic on sub. maxAge falls back to
// DefaultMaxAge when zero.
func NewMQTTSource(sub mqtt.Subscriber, topic string, maxAge time.Duration, now func() time.Time) (*MQTTSource, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now == nil {
		now = time.Now
	}
	s := &MQTTSource{maxAge: maxAge, now: now}
	if err := sub.Subscribe(topic, s.handle); err != nil {
		return nil, fmt.Errorf("subscribe readings: %w", err)
	}
	return s, nil
}

func (s *MQTTSource) handle(payload []byte) {
	var r logic.Readings
	if err := json.Unmarshal(payload, &r); err != nil {
		s.mu.Lock()
		s.rejected++
		s.mu.Unlock()
		log.Printf("sensors: bad reading payload: %v", err)
		return
	}
	for i := range r.Soil {
		if r.Soil[i].Percent > 100 {
			r.Soil[i].OK = false
		}
	}

	s.mu.Lock()
	s.latest = r
	s.received = s.now()
	s.have = true
	s.mu.Unlock()
}

// Read returns the latest reading, ErrNoData before the first one arrives,
// or ErrStale once it is older than the max age.
func (s *MQTTSource) Read(ctx context.Context) (logic.Readings, error) {
	if err := ctx.Err(); err != nil {
		return logic.Readings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have {
		return logic.Readings{}, ErrNoData
	}
	if age := s.now().Sub(s.received); age > s.maxAge {
		return logic.Readings{}, fmt.Errorf("%w: %s old", ErrStale, age.Truncate(time.Second))
	}
	r := s.latest
	r.Soil = append([]logic.SoilChannel(nil), s.latest.Soil...)
	return r, nil
}

// Rejected returns the number of payloads that could not be decoded.
func (s *MQTTSource) Rejected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

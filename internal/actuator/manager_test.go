package actuator

import (
	"errors"
	"testing"

	"github.com/sweeney/growbox/internal/clock"
)

// recordingSink records every write and the current level per channel.
type recordingSink struct {
	writes []Event
	levels map[Channel]bool
	err    error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{levels: map[Channel]bool{}}
}

func (s *recordingSink) Set(ch Channel, on bool) error {
	s.writes = append(s.writes, Event{Channel: ch, On: on})
	if s.err != nil {
		return s.err
	}
	s.levels[ch] = on
	return nil
}

func (s *recordingSink) writesFor(ch Channel) []bool {
	var out []bool
	for _, w := range s.writes {
		if w.Channel == ch {
			out = append(out, w.On)
		}
	}
	return out
}

func setup(start clock.Tick) (*Manager, *recordingSink, *clock.FakeClock) {
	sink := newRecordingSink()
	clk := clock.NewFakeClock(start)
	m := NewManager(sink, clk, 100)
	return m, sink, clk
}

func TestInitDrivesAllLow(t *testing.T) {
	m, sink, _ := setup(0)
	m.Init()

	if len(sink.writes) != len(Channels) {
		t.Fatalf("expected %d writes, got %d", len(Channels), len(sink.writes))
	}
	for _, w := range sink.writes {
		if w.On {
			t.Errorf("%s: expected low after init", w.Channel)
		}
	}
}

func TestStartPumpZeroIsNoop(t *testing.T) {
	m, sink, _ := setup(0)

	if m.StartPump(0) {
		t.Error("StartPump(0) should report false")
	}
	if m.IsPumpOn() {
		t.Error("pump should stay off")
	}
	if m.PumpJob().Running {
		t.Error("no job should be armed")
	}
	if len(sink.writes) != 0 {
		t.Errorf("expected no writes, got %d", len(sink.writes))
	}
}

func TestPumpAutoStopBoundary(t *testing.T) {
	m, _, clk := setup(1000)

	if !m.StartPump(100) {
		t.Fatal("StartPump(100) should start")
	}
	if !m.IsPumpOn() {
		t.Fatal("pump should be on")
	}
	if got := m.PumpJob().DurationMs; got != 60000 {
		t.Fatalf("duration: got %d, want 60000", got)
	}

	clk.T = 1000 + 59999
	m.Tick(clk.Now())
	if !m.IsPumpOn() {
		t.Fatal("pump stopped before 60000 ms")
	}

	clk.T = 1000 + 60000
	m.Tick(clk.Now())
	if m.IsPumpOn() {
		t.Fatal("pump still on at 60000 ms")
	}
	if m.PumpJob().Running {
		t.Error("job should be cleared")
	}
}

func TestPumpAutoStopAcrossWrap(t *testing.T) {
	m, _, clk := setup(0xFFFFFFFF - 30000)
	m.StartPump(100)

	clk.Advance(59999)
	m.Tick(clk.Now())
	if !m.IsPumpOn() {
		t.Fatal("pump stopped early across wrap")
	}

	clk.Advance(1)
	m.Tick(clk.Now())
	if m.IsPumpOn() {
		t.Fatal("pump not stopped at deadline across wrap")
	}
}

func TestPumpRestartReplacesJob(t *testing.T) {
	m, _, clk := setup(0)
	m.StartPump(100) // 60 s

	clk.Advance(50000)
	m.StartPump(50) // 30 s from now, not added to the remaining 10 s

	clk.Advance(29999)
	m.Tick(clk.Now())
	if !m.IsPumpOn() {
		t.Fatal("replacement job stopped early")
	}
	if got := m.PumpJob().VolumeMl; got != 50 {
		t.Errorf("volume: got %d, want 50", got)
	}

	clk.Advance(1)
	m.Tick(clk.Now())
	if m.IsPumpOn() {
		t.Fatal("replacement job overran")
	}
}

func TestStopPumpIdempotent(t *testing.T) {
	m, _, _ := setup(0)
	m.StopPump()
	m.StopPump()
	if m.IsPumpOn() {
		t.Error("pump should be off")
	}
	if ev := m.Drain(); len(ev) != 0 {
		t.Errorf("expected no change events, got %d", len(ev))
	}

	m.StartPump(10)
	m.StopPump()
	m.StopPump()
	ev := m.Drain()
	if len(ev) != 2 {
		t.Fatalf("expected ON and OFF events, got %d", len(ev))
	}
	if !ev[0].On || ev[1].On {
		t.Errorf("unexpected events: %+v", ev)
	}
}

func TestSetPumpFlowRate(t *testing.T) {
	m, _, _ := setup(0)
	if err := m.SetPumpFlowRate(0); !errors.Is(err, ErrZeroFlowRate) {
		t.Errorf("expected ErrZeroFlowRate, got %v", err)
	}
	if err := m.SetPumpFlowRate(200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.StartPump(100)
	if got := m.PumpJob().DurationMs; got != 30000 {
		t.Errorf("duration at 200 mL/min: got %d, want 30000", got)
	}
}

func TestDurationMs(t *testing.T) {
	tests := []struct {
		volume, flow uint16
		want         uint32
	}{
		{100, 100, 60000},
		{200, 100, 120000},
		{150, 100, 90000},
		{1, 3, 20000},
		{65535, 1, 3932100000},
		{100, 0, 0},
	}
	for _, tt := range tests {
		if got := DurationMs(tt.volume, tt.flow); got != tt.want {
			t.Errorf("DurationMs(%d, %d): got %d, want %d", tt.volume, tt.flow, got, tt.want)
		}
	}
}

func TestBlinkSequence(t *testing.T) {
	m, sink, clk := setup(500)
	m.Blink(3, 200)

	if !m.IsIndicatorOn() {
		t.Fatal("indicator should turn on immediately")
	}

	var toggleTicks []clock.Tick
	toggleTicks = append(toggleTicks, clk.Now())
	last := m.IsIndicatorOn()

	// Poll every 50 ms for 3 s.
	for i := 0; i < 60; i++ {
		clk.Advance(50)
		m.Tick(clk.Now())
		if m.IsIndicatorOn() != last {
			last = m.IsIndicatorOn()
			toggleTicks = append(toggleTicks, clk.Now())
		}
	}

	if len(toggleTicks) != 6 {
		t.Fatalf("expected 6 toggles, got %d", len(toggleTicks))
	}
	for i := 1; i < len(toggleTicks); i++ {
		if gap := toggleTicks[i].Since(toggleTicks[i-1]); gap < 200 {
			t.Errorf("toggle %d: spacing %d ms < 200 ms", i, gap)
		}
	}
	if m.IsIndicatorOn() {
		t.Error("sequence should end off")
	}
	if m.IsBlinking() {
		t.Error("sequence should have terminated")
	}

	writes := sink.writesFor(Indicator)
	if len(writes) != 6 {
		t.Fatalf("expected 6 indicator writes, got %d", len(writes))
	}
	for i, on := range writes {
		if want := i%2 == 0; on != want {
			t.Errorf("write %d: got %v, want %v", i, on, want)
		}
	}
}

func TestBlinkZeroIsNoop(t *testing.T) {
	m, sink, _ := setup(0)
	m.Blink(0, 200)
	if m.IsIndicatorOn() || m.IsBlinking() {
		t.Error("Blink(0) should do nothing")
	}
	if len(sink.writes) != 0 {
		t.Errorf("expected no writes, got %d", len(sink.writes))
	}
}

func TestSetIndicatorCancelsBlink(t *testing.T) {
	m, _, clk := setup(0)
	m.Blink(5, 200)
	clk.Advance(200)
	m.Tick(clk.Now())

	m.SetIndicator(true)
	if m.IsBlinking() {
		t.Fatal("SetIndicator should cancel the sequence")
	}

	for i := 0; i < 10; i++ {
		clk.Advance(200)
		m.Tick(clk.Now())
		if !m.IsIndicatorOn() {
			t.Fatal("steady indicator toggled after cancel")
		}
	}
}

func TestLightFanEvents(t *testing.T) {
	m, _, clk := setup(42)
	m.SetLight(true)
	m.SetLight(true)
	clk.Advance(10)
	m.SetFan(true)
	m.SetFan(false)

	ev := m.Drain()
	if len(ev) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(ev), ev)
	}
	if ev[0].Channel != Light || !ev[0].On || ev[0].Tick != 42 {
		t.Errorf("event 0: %+v", ev[0])
	}
	if ev[1].Channel != Fan || !ev[1].On || ev[1].Tick != 52 {
		t.Errorf("event 1: %+v", ev[1])
	}
	if ev[2].Channel != Fan || ev[2].On {
		t.Errorf("event 2: %+v", ev[2])
	}
	if len(m.Drain()) != 0 {
		t.Error("Drain should clear events")
	}
}

func TestSinkErrorKeepsLogicalState(t *testing.T) {
	m, sink, _ := setup(0)
	sink.err = errors.New("line busy")

	m.SetFan(true)
	if !m.IsFanOn() {
		t.Error("logical state should follow the command")
	}
	if len(sink.writes) != 1 {
		t.Errorf("expected one attempted write, got %d", len(sink.writes))
	}
}

func TestAllOff(t *testing.T) {
	m, _, _ := setup(0)
	m.SetLight(true)
	m.SetFan(true)
	m.StartPump(100)
	m.Blink(2, 100)

	m.AllOff()
	if (m.Outputs() != Outputs{}) {
		t.Errorf("expected all off, got %+v", m.Outputs())
	}
	if m.IsBlinking() || m.PumpJob().Running {
		t.Error("expected sequence and job cancelled")
	}
}

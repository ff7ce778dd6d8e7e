package peck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logic"
)

func TestNewInitializesBoard(t *testing.T) {
	f := newFakeBoard(t)
	var states []State
	c := f.newController(t, WithStateObserver(func(s State) { states = append(states, s) }))

	if c.State() != StateReady {
		t.Errorf("state: got %s, want READY", c.State())
	}
	if c.InterruptLine() != f.board.Candidates[2] {
		t.Errorf("interrupt line: got %s", c.InterruptLine())
	}
	for _, pos := range logic.Positions {
		if c.Colors()[pos] != logic.ColorOff {
			t.Errorf("%s: got %s, want OFF", pos, c.Colors()[pos])
		}
		g := f.leds(pos)
		if g == nil {
			t.Fatalf("%s leds not requested", pos)
		}
		if !intsEqual(g.Initial, []int{0, 0, 0}) {
			t.Errorf("%s leds initial: got %v, want [0 0 0]", pos, g.Initial)
		}
		if len(g.Writes) != 0 {
			t.Errorf("%s leds written before any peck: %v", pos, g.Writes)
		}
	}

	ir := f.provider.Outputs[gpio.GroupKey(f.board.Chip, f.board.IR)]
	if ir == nil {
		t.Fatal("ir emitters not requested")
	}
	if !intsEqual(ir.Initial, []int{1, 1, 1}) {
		t.Errorf("ir initial: got %v, want [1 1 1]", ir.Initial)
	}

	want := []State{StateDiscovering, StateReady}
	if len(states) != len(want) {
		t.Fatalf("states: got %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state %d: got %s, want %s", i, states[i], want[i])
		}
	}
}

func TestNewLEDRequestFailure(t *testing.T) {
	f := newFakeBoard(t)
	f.provider.RequestErrors[gpio.Line{Chip: "gpiochip4", Offset: 4}] = errors.New("busy")

	_, err := New(context.Background(), f.provider, f.board)
	var setupErr *SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("got %v, want *SetupError", err)
	}
	for _, l := range f.board.Candidates {
		if !f.provider.Edges[l].Closed() {
			t.Errorf("candidate %s not released", l)
		}
	}
	if !f.keys.Closed {
		t.Error("keys not released")
	}
	if right := f.leds(logic.PositionRight); right == nil || !right.Closed {
		t.Error("right leds not released")
	}
}

func TestNewKeyRequestFailure(t *testing.T) {
	f := newFakeBoard(t)
	f.provider.RequestErrors[gpio.Line{Chip: "gpiochip4", Offset: 14}] = errors.New("busy")

	_, err := New(context.Background(), f.provider, f.board)
	var setupErr *SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("got %v, want *SetupError", err)
	}
}

func TestRisingThenFallingAdvancesOnce(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionCenter])
	c := f.newController(t)

	f.monitorScript(t, c, rising, falling)

	colors := c.Colors()
	if colors[logic.PositionCenter] != logic.ColorBlue {
		t.Errorf("center: got %s, want BLUE", colors[logic.PositionCenter])
	}
	if colors[logic.PositionRight] != logic.ColorOff || colors[logic.PositionLeft] != logic.ColorOff {
		t.Errorf("right/left changed: %v", colors)
	}

	center := f.leds(logic.PositionCenter)
	if len(center.Writes) != 1 || !intsEqual(center.Writes[0], []int{0, 1, 0}) {
		t.Errorf("center writes: got %v, want [[0 1 0]]", center.Writes)
	}
	if n := len(f.leds(logic.PositionRight).Writes) + len(f.leds(logic.PositionLeft).Writes); n != 0 {
		t.Errorf("right/left written %d times", n)
	}
	if f.keys.Reads != 1 {
		t.Errorf("key reads: got %d, want 1 (rising edge must not sample)", f.keys.Reads)
	}
}

func TestDoublePressAdvancesTwice(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionCenter])
	c := f.newController(t)

	f.monitorScript(t, c, falling, falling)

	if got := c.Colors()[logic.PositionCenter]; got != logic.ColorRed {
		t.Errorf("center: got %s, want RED", got)
	}
	center := f.leds(logic.PositionCenter)
	want := [][]int{{0, 1, 0}, {1, 0, 0}}
	if len(center.Writes) != len(want) {
		t.Fatalf("center writes: got %v, want %v", center.Writes, want)
	}
	for i := range want {
		if !intsEqual(center.Writes[i], want[i]) {
			t.Errorf("write %d: got %v, want %v", i, center.Writes[i], want[i])
		}
	}
	if c.Counts().Center != 2 {
		t.Errorf("center count: got %d, want 2", c.Counts().Center)
	}
}

func TestFallingWithNoKeyDoesNothing(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionNone])
	c := f.newController(t)

	f.monitorScript(t, c, falling)

	for _, pos := range logic.Positions {
		if c.Colors()[pos] != logic.ColorOff {
			t.Errorf("%s: got %s, want OFF", pos, c.Colors()[pos])
		}
		if len(f.leds(pos).Writes) != 0 {
			t.Errorf("%s: unexpected writes %v", pos, f.leds(pos).Writes)
		}
	}
	if c.Counts().Total() != 0 {
		t.Errorf("counts: got %+v", c.Counts())
	}
}

func TestEdgesProcessedInOrder(t *testing.T) {
	f := newFakeBoard(t,
		keysOn[logic.PositionRight],
		keysOn[logic.PositionLeft],
		keysOn[logic.PositionRight],
		[]int{1, 1, 0}, // two keys: the lower index wins
	)
	c := f.newController(t)

	f.monitorScript(t, c, falling, rising, falling, falling, falling)

	colors := c.Colors()
	if colors[logic.PositionRight] != logic.ColorGreen {
		t.Errorf("right: got %s, want GREEN", colors[logic.PositionRight])
	}
	if colors[logic.PositionLeft] != logic.ColorBlue {
		t.Errorf("left: got %s, want BLUE", colors[logic.PositionLeft])
	}
	if colors[logic.PositionCenter] != logic.ColorOff {
		t.Errorf("center: got %s, want OFF", colors[logic.PositionCenter])
	}
}

func TestWriteFailureKeepsStoredColor(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionCenter])
	c := f.newController(t)
	center := f.leds(logic.PositionCenter)
	center.WriteError = errors.New("i2c nack")

	err := c.handleEdge(falling)
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("got %v, want *WriteError", err)
	}
	if got := c.Colors()[logic.PositionCenter]; got != logic.ColorOff {
		t.Errorf("center after failed write: got %s, want OFF", got)
	}

	// The next successful cycle starts from the stored color, not the attempted one.
	center.WriteError = nil
	if err := c.handleEdge(falling); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Colors()[logic.PositionCenter]; got != logic.ColorBlue {
		t.Errorf("center after retry: got %s, want BLUE", got)
	}
	if len(center.Writes) != 1 || !intsEqual(center.Writes[0], []int{0, 1, 0}) {
		t.Errorf("center writes: got %v, want [[0 1 0]]", center.Writes)
	}
}

func TestMonitorStopsOnWriteFailure(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionLeft])
	c := f.newController(t)
	f.leds(logic.PositionLeft).WriteError = errors.New("i2c nack")

	f.interrupt.Push(falling, falling)
	err := c.Monitor(context.Background())
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("got %v, want *WriteError", err)
	}
	if c.State() != StateFailed {
		t.Errorf("state: got %s, want FAILED", c.State())
	}
	if f.interrupt.Consumed() != 2 {
		t.Errorf("edges consumed: got %d, want 2 (discovery + first peck)", f.interrupt.Consumed())
	}
}

func TestMonitorStopsOnReadFailure(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionLeft])
	c := f.newController(t)
	f.keys.ReadError = errors.New("i2c timeout")

	f.interrupt.Push(falling)
	err := c.Monitor(context.Background())
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("got %v, want *ReadError", err)
	}
	if c.State() != StateFailed {
		t.Errorf("state: got %s, want FAILED", c.State())
	}
}

func TestMonitorInterruptFailureIsReadError(t *testing.T) {
	f := newFakeBoard(t)
	c := f.newController(t)

	err := c.Monitor(context.Background())
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("got %v, want *ReadError", err)
	}
	if readErr.Lines[0] != f.board.Candidates[2] {
		t.Errorf("Lines: got %v", readErr.Lines)
	}
}

func TestMonitorReturnsNilOnCancel(t *testing.T) {
	f := newFakeBoard(t)
	f.interrupt.Err = nil // block once the script is consumed
	c := f.newController(t)

	ctx, cancel := context.WithCancel(context.Background())
	errc := c.Start(ctx)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("got %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
	if c.State() != StateStopped {
		t.Errorf("state: got %s, want STOPPED", c.State())
	}
}

func TestCloseStopsMonitor(t *testing.T) {
	f := newFakeBoard(t)
	f.interrupt.Err = nil
	c := f.newController(t)

	errc := c.Start(context.Background())
	waitForState(t, c, StateMonitoring)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("got %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not return after Close")
	}

	if !f.keys.Closed {
		t.Error("keys not released")
	}
	for _, pos := range logic.Positions {
		if !f.leds(pos).Closed {
			t.Errorf("%s leds not released", pos)
		}
	}
	for _, l := range f.board.Candidates {
		if !f.provider.Edges[l].Closed() {
			t.Errorf("candidate %s not released", l)
		}
	}
}

func TestMonitorOnlyOnce(t *testing.T) {
	f := newFakeBoard(t)
	c := f.newController(t)

	_ = c.Monitor(context.Background())
	if err := c.Monitor(context.Background()); err == nil {
		t.Error("second Monitor should fail")
	}
}

func TestObserverReceivesPecks(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionRight])
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var got []Peck
	c := f.newController(t,
		WithObserver(func(p Peck) { got = append(got, p) }),
		WithClock(func() time.Time { return now }),
	)

	f.monitorScript(t, c,
		gpio.EdgeEvent{Edge: gpio.EdgeFalling, Timestamp: time.Second},
		gpio.EdgeEvent{Edge: gpio.EdgeFalling, Timestamp: 2 * time.Second},
	)

	if len(got) != 2 {
		t.Fatalf("pecks: got %d, want 2", len(got))
	}
	first := got[0]
	if first.Position != logic.PositionRight || first.From != logic.ColorOff || first.To != logic.ColorBlue {
		t.Errorf("peck 0: got %+v", first)
	}
	if first.Count != 1 || got[1].Count != 2 {
		t.Errorf("counts: got %d, %d", first.Count, got[1].Count)
	}
	if first.Timestamp != time.Second || !first.Time.Equal(now) {
		t.Errorf("peck 0 times: got %v, %v", first.Timestamp, first.Time)
	}
}

func TestObserverNotCalledOnWriteFailure(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionRight])
	called := false
	c := f.newController(t, WithObserver(func(Peck) { called = true }))
	f.leds(logic.PositionRight).WriteError = errors.New("i2c nack")

	if err := c.handleEdge(falling); err == nil {
		t.Fatal("expected write error")
	}
	if called {
		t.Error("observer called for an uncommitted change")
	}
}

func TestMinPressIntervalCoalesces(t *testing.T) {
	f := newFakeBoard(t, keysOn[logic.PositionCenter])
	c := f.newController(t, WithMinPressInterval(50*time.Millisecond))

	f.monitorScript(t, c,
		gpio.EdgeEvent{Edge: gpio.EdgeFalling, Timestamp: 100 * time.Millisecond},
		gpio.EdgeEvent{Edge: gpio.EdgeFalling, Timestamp: 110 * time.Millisecond},
		gpio.EdgeEvent{Edge: gpio.EdgeFalling, Timestamp: 300 * time.Millisecond},
	)

	if got := c.Colors()[logic.PositionCenter]; got != logic.ColorRed {
		t.Errorf("center: got %s, want RED", got)
	}
}

func TestStateString(t *testing.T) {
	if StateMonitoring.String() != "MONITORING" {
		t.Errorf("got %q", StateMonitoring.String())
	}
	if State(99).String() != "State(99)" {
		t.Errorf("got %q", State(99).String())
	}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for c.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state: got %s, want %s", c.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

package gpio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFakeEdgeSourceScripted(t *testing.T) {
	line := Line{Chip: "gpiochip2", Offset: 22}
	f := NewFakeEdgeSource(line,
		EdgeEvent{Edge: EdgeRising},
		EdgeEvent{Edge: EdgeFalling},
	)
	f.Err = ErrClosed

	ctx := context.Background()
	ev, err := f.WaitEdge(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Edge != EdgeRising || ev.Line != line {
		t.Errorf("edge 0: got %+v", ev)
	}

	ev, err = f.WaitEdge(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Edge != EdgeFalling {
		t.Errorf("edge 1: got %s, want falling", ev.Edge)
	}

	if _, err := f.WaitEdge(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("exhausted: got %v, want ErrClosed", err)
	}
	if f.Consumed() != 2 {
		t.Errorf("consumed: got %d, want 2", f.Consumed())
	}
}

func TestFakeEdgeSourceBlocksUntilContextDone(t *testing.T) {
	f := NewFakeEdgeSource(Line{Chip: "gpiochip2", Offset: 23})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := f.WaitEdge(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}
}

func TestFakeEdgeSourceCloseWakesWaiter(t *testing.T) {
	f := NewFakeEdgeSource(Line{Chip: "gpiochip2", Offset: 24})
	errc := make(chan error, 1)
	go func() {
		_, err := f.WaitEdge(context.Background())
		errc <- err
	}()

	f.Close()
	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("got %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by Close")
	}
	if !f.Closed() {
		t.Error("should be closed after Close()")
	}
}

func TestFakeEdgeSourcePush(t *testing.T) {
	line := Line{Chip: "gpiochip2", Offset: 25}
	f := NewFakeEdgeSource(line)
	f.Push(EdgeEvent{Edge: EdgeFalling})

	ev, err := f.WaitEdge(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Line != line {
		t.Errorf("pushed edge should carry the source line, got %s", ev.Line)
	}
}

func TestFakeInputGroupValues(t *testing.T) {
	f := NewFakeInputGroup([]int{1, 0, 0}, []int{0, 0, 1})

	v, err := f.Values()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v[0] != 1 {
		t.Errorf("sample 0: got %v", v)
	}

	v, _ = f.Values()
	if v[2] != 1 {
		t.Errorf("sample 1: got %v", v)
	}

	// Exhausted samples repeat the last one
	v, _ = f.Values()
	if v[2] != 1 {
		t.Errorf("sample 2 (repeat): got %v", v)
	}
	if f.Reads != 3 {
		t.Errorf("reads: got %d, want 3", f.Reads)
	}
}

func TestFakeInputGroupErrors(t *testing.T) {
	f := NewFakeInputGroup()
	if _, err := f.Values(); err == nil {
		t.Error("expected error with no samples")
	}

	f = NewFakeInputGroup([]int{0, 0, 0})
	f.ReadError = errors.New("simulated error")
	if _, err := f.Values(); err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}

	f.ReadError = nil
	f.Close()
	if _, err := f.Values(); !errors.Is(err, ErrClosed) {
		t.Errorf("closed: got %v, want ErrClosed", err)
	}
}

func TestFakeOutputGroup(t *testing.T) {
	f := &FakeOutputGroup{Initial: []int{0, 0, 0}}
	if got := f.Current(); got[0] != 0 {
		t.Errorf("initial: got %v", got)
	}

	if err := f.SetValues([]int{1, 1, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.WriteError = errors.New("simulated error")
	if err := f.SetValues([]int{0, 1, 0}); err == nil {
		t.Error("expected write error")
	}

	if len(f.Writes) != 1 {
		t.Fatalf("writes: got %d, want 1", len(f.Writes))
	}
	if got := f.Current(); got[0] != 1 || got[1] != 1 || got[2] != 1 {
		t.Errorf("current: got %v, want [1 1 1]", got)
	}
}

func TestFakeProviderRequests(t *testing.T) {
	p := NewFakeProvider()
	bad := Line{Chip: "gpiochip4", Offset: 5}
	p.RequestErrors[bad] = errors.New("busy")

	if _, err := p.RequestOutputs("gpiochip4", []int{2, 5, 8}, []int{0, 0, 0}); err == nil {
		t.Error("expected error for group containing a failing line")
	}

	g, err := p.RequestOutputs("gpiochip4", []int{0, 3, 6}, []int{0, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != p.Outputs[GroupKey("gpiochip4", []int{0, 3, 6})] {
		t.Error("output group not registered under its key")
	}

	src, err := p.RequestEdgeInput(Line{Chip: "gpiochip2", Offset: 22})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Line().Offset != 22 {
		t.Errorf("edge line: got %s", src.Line())
	}
	if len(p.Requested) != 6 {
		t.Errorf("requested: got %d lines, want 6", len(p.Requested))
	}
}

func TestGroupKey(t *testing.T) {
	if got := GroupKey("gpiochip4", []int{13, 14, 15}); got != "gpiochip4:13,14,15" {
		t.Errorf("got %q", got)
	}
}

func TestFakeEdgeSourcePushWakesWaiter(t *testing.T) {
	src := NewFakeEdgeSource(Line{Chip: "gpiochip2", Offset: 22})

	got := make(chan EdgeEvent, 1)
	go func() {
		ev, err := src.WaitEdge(context.Background())
		if err == nil {
			got <- ev
		}
	}()

	time.Sleep(10 * time.Millisecond)
	src.Push(EdgeEvent{Edge: EdgeFalling})

	select {
	case ev := <-got:
		if ev.Edge != EdgeFalling || ev.Line.Offset != 22 {
			t.Errorf("unexpected edge: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Push did not wake the waiter")
	}
}

package peck

import (
	"context"
	"errors"
	"testing"

	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logic"
)

// errEndOfScript ends a monitoring run once the scripted edges are used up.
var errEndOfScript = errors.New("end of script")

var (
	keysOn = map[logic.KeyPosition][]int{
		logic.PositionRight:  {1, 0, 0},
		logic.PositionCenter: {0, 1, 0},
		logic.PositionLeft:   {0, 0, 1},
		logic.PositionNone:   {0, 0, 0},
	}
	rising  = gpio.EdgeEvent{Edge: gpio.EdgeRising}
	falling = gpio.EdgeEvent{Edge: gpio.EdgeFalling}
)

func testBoard() Board {
	return Board{
		Candidates: []gpio.Line{
			{Chip: "gpiochip2", Offset: 22},
			{Chip: "gpiochip2", Offset: 23},
			{Chip: "gpiochip2", Offset: 24},
			{Chip: "gpiochip2", Offset: 25},
		},
		Chip: "gpiochip4",
		Keys: []int{13, 14, 15},
		IR:   []int{9, 10, 11},
		LEDs: [logic.NumPositions][]int{
			logic.PositionRight:  {0, 3, 6},
			logic.PositionCenter: {1, 4, 7},
			logic.PositionLeft:   {2, 5, 8},
		},
	}
}

type fakeBoard struct {
	provider  *gpio.FakeProvider
	board     Board
	interrupt *gpio.FakeEdgeSource
	keys      *gpio.FakeInputGroup
}

// newFakeBoard wires a provider where only the third candidate ever fires.
// The interrupt source reports errEndOfScript once its edges are consumed.
func newFakeBoard(t *testing.T, keySamples ...[]int) *fakeBoard {
	t.Helper()
	board := testBoard()
	p := gpio.NewFakeProvider()

	winner := gpio.NewFakeEdgeSource(board.Candidates[2], rising)
	winner.Err = errEndOfScript
	p.Edges[board.Candidates[2]] = winner

	if len(keySamples) == 0 {
		keySamples = [][]int{keysOn[logic.PositionNone]}
	}
	keys := gpio.NewFakeInputGroup(keySamples...)
	p.Inputs[gpio.GroupKey(board.Chip, board.Keys)] = keys

	return &fakeBoard{provider: p, board: board, interrupt: winner, keys: keys}
}

func (f *fakeBoard) leds(pos logic.KeyPosition) *gpio.FakeOutputGroup {
	return f.provider.Outputs[gpio.GroupKey(f.board.Chip, f.board.LEDs[pos])]
}

func (f *fakeBoard) newController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c, err := New(context.Background(), f.provider, f.board, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// monitorScript runs Monitor over the given edges and checks it stopped only
// because the script ran out.
func (f *fakeBoard) monitorScript(t *testing.T, c *Controller, edges ...gpio.EdgeEvent) {
	t.Helper()
	f.interrupt.Push(edges...)
	err := c.Monitor(context.Background())
	if !errors.Is(err, errEndOfScript) {
		t.Fatalf("Monitor: got %v, want end of script", err)
	}
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

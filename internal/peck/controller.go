// Package peck implements the peck-board controller: it discovers which line
// carries the key interrupt, then cycles a key's LED color on every peck.
package peck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logger"
	"github.com/sweeney/peckboard/internal/logic"
)

// State is the controller lifecycle phase.
type State int32

const (
	StateUninitialized State = iota
	StateDiscovering
	StateReady
	StateMonitoring
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateDiscovering:
		return "DISCOVERING"
	case StateReady:
		return "READY"
	case StateMonitoring:
		return "MONITORING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Board describes the lines the controller binds.
type Board struct {
	// Candidates are the possible interrupt lines, probed in order.
	Candidates []gpio.Line
	// Chip carries the key, IR emitter and LED lines.
	Chip string
	// Keys are the key inputs in position order (right, center, left).
	Keys []int
	// IR are the infrared emitter outputs, driven high for the controller's lifetime.
	IR []int
	// LEDs are the (red, blue, green) outputs of each position.
	LEDs [logic.NumPositions][]int
}

// Peck describes one committed color change.
type Peck struct {
	Position logic.KeyPosition
	From     logic.LedColor
	To       logic.LedColor
	// Count is the number of pecks on Position so far, this one included.
	Count int
	// Timestamp is the interrupt edge time reported by the line.
	Timestamp time.Duration
	Time      time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used by the controller.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithObserver registers fn to be called, from the monitoring goroutine,
// after every committed color change.
func WithObserver(fn func(Peck)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithStateObserver registers fn to be called on every lifecycle change.
func WithStateObserver(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// WithMinPressInterval drops key releases closer than d to the previous
// accepted release. Zero (the default) counts every release.
func WithMinPressInterval(d time.Duration) Option {
	return func(c *Controller) { c.filter = logic.NewPressFilter(d) }
}

// WithClock overrides the wall clock stamped on Peck.Time.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the peck board lines. Only one Monitor may run per
// controller; it is the sole writer of the color table.
type Controller struct {
	log      *logger.Logger
	observer func(Peck)
	onState  func(State)
	filter   *logic.PressFilter
	now      func() time.Time

	state  atomic.Int32
	closed atomic.Bool
	once   sync.Once

	discovery *Discovery
	interrupt gpio.EdgeSource
	keys      *KeyReader
	ir        gpio.OutputGroup
	leds      *LEDBank

	colors [logic.NumPositions]logic.LedColor
	counts logic.PressCounts
}

// New discovers the interrupt line among board.Candidates, then binds the
// key reader, the IR emitters and the LED bank with every LED off.
// It blocks until a candidate reports an edge or ctx ends.
func New(ctx context.Context, p gpio.Provider, board Board, opts ...Option) (*Controller, error) {
	c := &Controller{
		filter: logic.NewPressFilter(0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Discard()
	}

	c.setState(StateDiscovering)
	d, err := Discover(ctx, p, board.Candidates, c.log)
	if err != nil {
		c.setState(StateFailed)
		return nil, err
	}
	c.discovery = d
	c.interrupt = d.Source()

	if err := c.bind(p, board); err != nil {
		c.release()
		c.setState(StateFailed)
		return nil, err
	}

	c.setState(StateReady)
	return c, nil
}

func (c *Controller) bind(p gpio.Provider, board Board) error {
	keys, err := NewKeyReader(p, board.Chip, board.Keys)
	if err != nil {
		return err
	}
	c.keys = keys

	if len(board.IR) > 0 {
		on := make([]int, len(board.IR))
		for i := range on {
			on[i] = 1
		}
		ir, err := p.RequestOutputs(board.Chip, board.IR, on)
		if err != nil {
			return &SetupError{Op: "request ir emitters", Lines: lines(board.Chip, board.IR), Err: err}
		}
		c.ir = ir
	}

	leds, err := NewLEDBank(p, board.Chip, board.LEDs)
	if err != nil {
		return err
	}
	c.leds = leds
	return nil
}

// Monitor handles interrupt edges until ctx ends, the controller is closed or
// a line fails. It returns nil on teardown and a *ReadError or *WriteError on
// failure. There is no retry: the owner decides whether to rebuild.
func (c *Controller) Monitor(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateReady), int32(StateMonitoring)) {
		return fmt.Errorf("peck: cannot monitor in state %s", c.State())
	}
	c.notifyState(StateMonitoring)
	c.log.Infof("Monitoring interrupt line %s. Cycle through leds by pecking.", c.interrupt.Line())

	for {
		ev, err := c.interrupt.WaitEdge(ctx)
		if err != nil {
			if ctx.Err() != nil || c.closed.Load() {
				c.setState(StateStopped)
				return nil
			}
			c.setState(StateFailed)
			return &ReadError{Op: "wait interrupt", Lines: []gpio.Line{c.interrupt.Line()}, Err: err}
		}
		if err := c.handleEdge(ev); err != nil {
			if c.closed.Load() {
				c.setState(StateStopped)
				return nil
			}
			c.setState(StateFailed)
			return err
		}
	}
}

// Start runs Monitor on its own goroutine. The channel receives Monitor's
// result and is then closed.
func (c *Controller) Start(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		errc <- c.Monitor(ctx)
	}()
	return errc
}

// handleEdge applies one interrupt edge. The color table is only updated
// after the LED write succeeds.
func (c *Controller) handleEdge(ev gpio.EdgeEvent) error {
	// The interrupt toggles on press and on release; only the release
	// completes a peck.
	if ev.Edge != gpio.EdgeFalling {
		c.log.Debugf("Ignoring %s edge on %s", ev.Edge, ev.Line)
		return nil
	}

	pos, err := c.keys.Sample()
	if err != nil {
		return err
	}
	if !pos.Valid() {
		c.log.Debugf("Falling edge on %s with no key pressed", ev.Line)
		return nil
	}
	if !c.filter.Accept(ev.Timestamp) {
		c.log.Debugf("Coalescing %s release at %v", pos, ev.Timestamp)
		return nil
	}

	from := c.colors[pos]
	to := logic.Next(from)
	if err := c.leds.Set(pos, to); err != nil {
		return err
	}
	c.colors[pos] = to
	c.counts.Add(pos)

	c.log.Debugf("Peck %s: %s -> %s", pos, from, to)
	if c.observer != nil {
		c.observer(Peck{
			Position:  pos,
			From:      from,
			To:        to,
			Count:     c.counts.Get(pos),
			Timestamp: ev.Timestamp,
			Time:      c.now(),
		})
	}
	return nil
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// InterruptLine returns the line chosen by discovery.
func (c *Controller) InterruptLine() gpio.Line {
	return c.discovery.Line
}

// Colors returns the color table. It must not be called while Monitor runs;
// use WithObserver to follow changes.
func (c *Controller) Colors() [logic.NumPositions]logic.LedColor {
	return c.colors
}

// Counts returns the accepted pecks per position. The same restriction as
// Colors applies.
func (c *Controller) Counts() logic.PressCounts {
	return c.counts
}

// Keys returns the key reader.
func (c *Controller) Keys() *KeyReader {
	return c.keys
}

// Close releases every line. A running Monitor returns nil.
func (c *Controller) Close() error {
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		err = c.release()
		if c.State() != StateFailed {
			c.setState(StateStopped)
		}
	})
	return err
}

func (c *Controller) release() error {
	var errs []error
	if c.discovery != nil {
		if err := c.discovery.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close interrupt candidates: %w", err))
		}
	}
	if c.keys != nil {
		if err := c.keys.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close keys: %w", err))
		}
	}
	if c.ir != nil {
		if err := c.ir.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ir emitters: %w", err))
		}
	}
	if c.leds != nil {
		if err := c.leds.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close leds: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.notifyState(s)
}

func (c *Controller) notifyState(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}

package gpio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// FakeEdgeSource is a test double that returns scripted edges.
type FakeEdgeSource struct {
	// Events contains scripted edges. Each call to WaitEdge consumes the next one.
	Events []EdgeEvent

	// Err, if set, is returned once Events are exhausted. Otherwise WaitEdge
	// blocks until ctx is done or the source is closed.
	Err error

	line   Line
	mu     sync.Mutex
	index  int
	closed bool
	done   chan struct{}
	pushed chan struct{}
}

// NewFakeEdgeSource creates a FakeEdgeSource for line with the given edges.
func NewFakeEdgeSource(line Line, events ...EdgeEvent) *FakeEdgeSource {
	for i := range events {
		events[i].Line = line
	}
	return &FakeEdgeSource{
		Events: events,
		line:   line,
		done:   make(chan struct{}),
		pushed: make(chan struct{}, 1),
	}
}

// Push appends edges to the script and wakes a blocked WaitEdge.
func (f *FakeEdgeSource) Push(events ...EdgeEvent) {
	f.mu.Lock()
	for _, ev := range events {
		ev.Line = f.line
		f.Events = append(f.Events, ev)
	}
	f.mu.Unlock()

	select {
	case f.pushed <- struct{}{}:
	default:
	}
}

// Line returns the watched line.
func (f *FakeEdgeSource) Line() Line { return f.line }

// WaitEdge returns the next scripted edge.
func (f *FakeEdgeSource) WaitEdge(ctx context.Context) (EdgeEvent, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return EdgeEvent{}, ErrClosed
		}
		if f.index < len(f.Events) {
			ev := f.Events[f.index]
			f.index++
			f.mu.Unlock()
			return ev, nil
		}
		err := f.Err
		f.mu.Unlock()

		if err != nil {
			return EdgeEvent{}, err
		}
		select {
		case <-f.done:
			return EdgeEvent{}, ErrClosed
		case <-ctx.Done():
			return EdgeEvent{}, ctx.Err()
		case <-f.pushed:
		}
	}
}

// Consumed returns the number of edges handed out so far.
func (f *FakeEdgeSource) Consumed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// Closed reports whether Close was called.
func (f *FakeEdgeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close marks the source as closed and wakes any waiter.
func (f *FakeEdgeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

// FakeInputGroup is a test double that returns scripted line levels.
type FakeInputGroup struct {
	// Samples contains scripted levels. Each call to Values consumes the next
	// sample; once exhausted the last one is repeated.
	Samples [][]int

	// ReadError, if set, will be returned by Values.
	ReadError error

	// Reads counts calls to Values.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeInputGroup creates a FakeInputGroup with the given samples.
func NewFakeInputGroup(samples ...[]int) *FakeInputGroup {
	return &FakeInputGroup{Samples: samples}
}

// Values returns the next scripted sample.
func (f *FakeInputGroup) Values() ([]int, error) {
	f.Reads++
	if f.Closed {
		return nil, ErrClosed
	}
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if len(f.Samples) == 0 {
		return nil, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return append([]int(nil), sample...), nil
}

// Close marks the group as closed.
func (f *FakeInputGroup) Close() error {
	f.Closed = true
	return nil
}

// FakeOutputGroup records every write for test assertions.
type FakeOutputGroup struct {
	// Initial holds the levels requested at construction.
	Initial []int

	// Writes contains every successful SetValues call.
	Writes [][]int

	// WriteError, if set, will be returned by SetValues and nothing is recorded.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// SetValues records values.
func (f *FakeOutputGroup) SetValues(values []int) error {
	if f.Closed {
		return ErrClosed
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, append([]int(nil), values...))
	return nil
}

// Current returns the levels the lines are driven to.
func (f *FakeOutputGroup) Current() []int {
	if len(f.Writes) > 0 {
		return f.Writes[len(f.Writes)-1]
	}
	return f.Initial
}

// Close marks the group as closed.
func (f *FakeOutputGroup) Close() error {
	f.Closed = true
	return nil
}

// FakeProvider hands out fakes and records every request.
// Requests for lines without a registered fake get a fresh one.
type FakeProvider struct {
	// Edges maps lines to the sources returned by RequestEdgeInput.
	Edges map[Line]*FakeEdgeSource

	// Inputs maps GroupKey(chip, offsets) to input groups.
	Inputs map[string]*FakeInputGroup

	// Outputs maps GroupKey(chip, offsets) to output groups.
	Outputs map[string]*FakeOutputGroup

	// RequestErrors fails any request touching the given line.
	RequestErrors map[Line]error

	// Requested lists every line requested, in order.
	Requested []Line

	// Closed tracks if Close was called.
	Closed bool

	mu sync.Mutex
}

// NewFakeProvider creates an empty FakeProvider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Edges:         make(map[Line]*FakeEdgeSource),
		Inputs:        make(map[string]*FakeInputGroup),
		Outputs:       make(map[string]*FakeOutputGroup),
		RequestErrors: make(map[Line]error),
	}
}

// GroupKey names a line group as "chip:o1,o2,...".
func GroupKey(chip string, offsets []int) string {
	parts := make([]string, len(offsets))
	for i, o := range offsets {
		parts[i] = fmt.Sprint(o)
	}
	return chip + ":" + strings.Join(parts, ",")
}

func (p *FakeProvider) check(chip string, offsets []int) error {
	for _, o := range offsets {
		l := Line{Chip: chip, Offset: o}
		p.Requested = append(p.Requested, l)
		if err := p.RequestErrors[l]; err != nil {
			return fmt.Errorf("request %s: %w", l, err)
		}
	}
	return nil
}

// RequestEdgeInput returns the registered source for line.
func (p *FakeProvider) RequestEdgeInput(line Line) (EdgeSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(line.Chip, []int{line.Offset}); err != nil {
		return nil, err
	}
	src, ok := p.Edges[line]
	if !ok {
		src = NewFakeEdgeSource(line)
		p.Edges[line] = src
	}
	return src, nil
}

// RequestInputs returns the registered input group for chip and offsets.
func (p *FakeProvider) RequestInputs(chip string, offsets []int) (InputGroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(chip, offsets); err != nil {
		return nil, err
	}
	key := GroupKey(chip, offsets)
	g, ok := p.Inputs[key]
	if !ok {
		g = NewFakeInputGroup(make([]int, len(offsets)))
		p.Inputs[key] = g
	}
	return g, nil
}

// RequestOutputs returns the registered output group for chip and offsets.
func (p *FakeProvider) RequestOutputs(chip string, offsets []int, initial []int) (OutputGroup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.check(chip, offsets); err != nil {
		return nil, err
	}
	key := GroupKey(chip, offsets)
	g, ok := p.Outputs[key]
	if !ok {
		g = &FakeOutputGroup{}
		p.Outputs[key] = g
	}
	g.Initial = append([]int(nil), initial...)
	return g, nil
}

// Close marks the provider as closed.
func (p *FakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

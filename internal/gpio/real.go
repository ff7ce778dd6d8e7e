//go:build linux

package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// eventBuffer bounds the number of undelivered edges per line.
const eventBuffer = 64

// RealProvider requests lines from actual hardware using the Linux GPIO character device.
type RealProvider struct {
	consumer string

	mu    sync.Mutex
	chips map[string]*gpiocdev.Chip
}

// NewRealProvider creates a provider that labels its requests with consumer.
func NewRealProvider(consumer string) (*RealProvider, error) {
	if consumer == "" {
		consumer = DefaultConsumer
	}
	return &RealProvider{
		consumer: consumer,
		chips:    make(map[string]*gpiocdev.Chip),
	}, nil
}

func (p *RealProvider) chip(name string) (*gpiocdev.Chip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.chips[name]; ok {
		return c, nil
	}
	c, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(p.consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	p.chips[name] = c
	return c, nil
}

// RequestEdgeInput requests line as an input with both-edge detection.
func (p *RealProvider) RequestEdgeInput(line Line) (EdgeSource, error) {
	c, err := p.chip(line.Chip)
	if err != nil {
		return nil, err
	}

	src := &realEdgeSource{
		line:   line,
		events: make(chan EdgeEvent, eventBuffer),
		done:   make(chan struct{}),
	}
	// The kernel cannot report falling edges only on these lines, so both
	// edges are requested and classified by the consumer.
	l, err := c.RequestLine(line.Offset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(src.handle),
		gpiocdev.WithConsumer(p.consumer))
	if err != nil {
		return nil, fmt.Errorf("request edge line %s: %w", line, err)
	}
	src.l = l
	return src, nil
}

// RequestInputs requests offsets on chip as inputs.
func (p *RealProvider) RequestInputs(chip string, offsets []int) (InputGroup, error) {
	c, err := p.chip(chip)
	if err != nil {
		return nil, err
	}
	ls, err := c.RequestLines(offsets, gpiocdev.AsInput, gpiocdev.WithConsumer(p.consumer))
	if err != nil {
		return nil, fmt.Errorf("request input lines %s:%v: %w", chip, offsets, err)
	}
	return &realInputGroup{ls: ls, n: len(offsets)}, nil
}

// RequestOutputs requests offsets on chip as outputs driven to initial.
func (p *RealProvider) RequestOutputs(chip string, offsets []int, initial []int) (OutputGroup, error) {
	if len(initial) != len(offsets) {
		return nil, fmt.Errorf("request output lines %s:%v: %d initial values", chip, offsets, len(initial))
	}
	c, err := p.chip(chip)
	if err != nil {
		return nil, err
	}
	ls, err := c.RequestLines(offsets, gpiocdev.AsOutput(initial...), gpiocdev.WithConsumer(p.consumer))
	if err != nil {
		return nil, fmt.Errorf("request output lines %s:%v: %w", chip, offsets, err)
	}
	return &realOutputGroup{ls: ls}, nil
}

// Close releases every chip opened by the provider.
func (p *RealProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, c := range p.chips {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip %s: %w", name, err))
		}
		delete(p.chips, name)
	}
	return errors.Join(errs...)
}

type realEdgeSource struct {
	line   Line
	l      *gpiocdev.Line
	events chan EdgeEvent
	done   chan struct{}
	once   sync.Once
}

// handle runs on the gpiocdev watcher goroutine. It blocks rather than drop
// an edge, so a slow consumer applies back-pressure to the kernel queue.
func (s *realEdgeSource) handle(evt gpiocdev.LineEvent) {
	ev := EdgeEvent{
		Line:      s.line,
		Edge:      EdgeRising,
		Timestamp: evt.Timestamp,
		Seqno:     evt.LineSeqno,
	}
	if evt.Type == gpiocdev.LineEventFallingEdge {
		ev.Edge = EdgeFalling
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *realEdgeSource) Line() Line { return s.line }

func (s *realEdgeSource) WaitEdge(ctx context.Context) (EdgeEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		return EdgeEvent{}, ErrClosed
	case <-ctx.Done():
		return EdgeEvent{}, ctx.Err()
	}
}

func (s *realEdgeSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.l != nil {
			if cerr := s.l.Close(); cerr != nil {
				err = fmt.Errorf("close edge line %s: %w", s.line, cerr)
			}
		}
	})
	return err
}

type realInputGroup struct {
	ls *gpiocdev.Lines
	n  int
}

func (g *realInputGroup) Values() ([]int, error) {
	values := make([]int, g.n)
	if err := g.ls.Values(values); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return values, nil
}

func (g *realInputGroup) Close() error {
	return g.ls.Close()
}

type realOutputGroup struct {
	ls *gpiocdev.Lines
}

func (g *realOutputGroup) SetValues(values []int) error {
	if err := g.ls.SetValues(values); err != nil {
		return fmt.Errorf("set lines: %w", err)
	}
	return nil
}

// Close reverts the lines to inputs before releasing them so nothing is left
// driven once the process exits.
func (g *realOutputGroup) Close() error {
	var errs []error
	if err := g.ls.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure lines: %w", err))
	}
	if err := g.ls.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close lines: %w", err))
	}
	return errors.Join(errs...)
}

package peck

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logger"
)

// Discovery is the outcome of racing the candidate interrupt lines.
// Every candidate stays requested as an edge input until Close.
type Discovery struct {
	// Index is the position of the winning line in the candidate list.
	Index int
	// Line is the winning line.
	Line gpio.Line
	// First is the edge that decided the race.
	First gpio.EdgeEvent

	sources []gpio.EdgeSource
}

// Source returns the winning line's edge source.
func (d *Discovery) Source() gpio.EdgeSource {
	return d.sources[d.Index]
}

// Close releases every candidate line.
func (d *Discovery) Close() error {
	var errs []error
	for _, s := range d.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type raceResult struct {
	index int
	ev    gpio.EdgeEvent
	err   error
}

// Discover requests every candidate as a both-edge input and returns the
// first one to report an edge. Failing to request any candidate is fatal.
// If ctx ends before an edge arrives the candidates are released and a
// SetupError wrapping ctx.Err() is returned.
func Discover(ctx context.Context, p gpio.Provider, candidates []gpio.Line, log *logger.Logger) (*Discovery, error) {
	if log == nil {
		log = logger.Discard()
	}
	if len(candidates) == 0 {
		return nil, &SetupError{Op: "discover", Err: errors.New("no candidate interrupt lines")}
	}

	d := &Discovery{sources: make([]gpio.EdgeSource, 0, len(candidates))}
	for _, line := range candidates {
		src, err := p.RequestEdgeInput(line)
		if err != nil {
			d.Close()
			return nil, &SetupError{Op: "request interrupt candidate", Lines: []gpio.Line{line}, Err: err}
		}
		d.sources = append(d.sources, src)
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the losing waiters never block once the race is decided.
	results := make(chan raceResult, len(d.sources))
	for i, src := range d.sources {
		go func(i int, src gpio.EdgeSource) {
			ev, err := src.WaitEdge(raceCtx)
			results <- raceResult{index: i, ev: ev, err: err}
		}(i, src)
	}

	log.Infof("Waiting for interrupt on %d candidate lines. Try pecking one of the keys.", len(candidates))

	var failures []error
	for range d.sources {
		r := <-results
		if r.err == nil {
			d.Index = r.index
			d.Line = candidates[r.index]
			d.First = r.ev
			log.Infof("Interrupted on line %s (%s edge)", d.Line, r.ev.Edge)
			return d, nil
		}
		if ctx.Err() != nil {
			break
		}
		failures = append(failures, fmt.Errorf("%s: %w", candidates[r.index], r.err))
	}

	d.Close()
	if err := ctx.Err(); err != nil {
		return nil, &SetupError{Op: "discover", Lines: candidates, Err: err}
	}
	return nil, &SetupError{Op: "discover", Lines: candidates, Err: errors.Join(failures...)}
}

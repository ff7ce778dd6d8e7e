// Package gpio provides the digital-line I/O the peck board needs.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned when waiting on, reading or writing a released line.
var ErrClosed = errors.New("gpio: line closed")

// Line identifies a single line by chip name and offset.
type Line struct {
	Chip   string
	Offset int
}

func (l Line) String() string {
	return fmt.Sprintf("%s:%d", l.Chip, l.Offset)
}

// Edge classifies a level transition.
type Edge int

const (
	EdgeRising Edge = iota + 1
	EdgeFalling
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	}
	return "unknown"
}

// EdgeEvent is one transition observed on an edge-detecting input.
type EdgeEvent struct {
	Line Line
	Edge Edge
	// Timestamp is the kernel's monotonic event time.
	Timestamp time.Duration
	// Seqno is the per-line sequence number, if the source provides one.
	Seqno uint32
}

// EdgeSource is an input line configured for both-edge detection.
// Events are delivered in hardware order; each is returned exactly once.
type EdgeSource interface {
	// Line returns the identity of the watched line.
	Line() Line

	// WaitEdge blocks until the next edge, ctx is done or the source is closed.
	WaitEdge(ctx context.Context) (EdgeEvent, error)

	// Close releases the line.
	Close() error
}

// InputGroup samples several input lines in one request.
type InputGroup interface {
	// Values returns the current level of every line, in request order.
	Values() ([]int, error)

	// Close releases the lines.
	Close() error
}

// OutputGroup drives several output lines in one request.
type OutputGroup interface {
	// SetValues sets every line, in request order.
	SetValues(values []int) error

	// Close releases the lines.
	Close() error
}

// Provider hands out line requests.
type Provider interface {
	// RequestEdgeInput configures line as an input reporting both edges.
	RequestEdgeInput(line Line) (EdgeSource, error)

	// RequestInputs configures offsets on chip as a single input group.
	RequestInputs(chip string, offsets []int) (InputGroup, error)

	// RequestOutputs configures offsets on chip as a single output group
	// driven to initial.
	RequestOutputs(chip string, offsets []int, initial []int) (OutputGroup, error)

	// Close releases any chips held by the provider.
	Close() error
}

// DefaultConsumer is the consumer label attached to every line request.
const DefaultConsumer = "peckboard"

package peck

import (
	"fmt"

	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logic"
)

// KeyReader samples the key lines in one request.
type KeyReader struct {
	group gpio.InputGroup
	lines []gpio.Line
}

// NewKeyReader requests offsets on chip as the key inputs, in position order.
func NewKeyReader(p gpio.Provider, chip string, offsets []int) (*KeyReader, error) {
	if len(offsets) != logic.NumPositions {
		return nil, &SetupError{
			Op:    "request keys",
			Lines: lines(chip, offsets),
			Err:   fmt.Errorf("got %d key lines, want %d", len(offsets), logic.NumPositions),
		}
	}
	g, err := p.RequestInputs(chip, offsets)
	if err != nil {
		return nil, &SetupError{Op: "request keys", Lines: lines(chip, offsets), Err: err}
	}
	return &KeyReader{group: g, lines: lines(chip, offsets)}, nil
}

// Sample returns the pressed position, or logic.PositionNone.
func (r *KeyReader) Sample() (logic.KeyPosition, error) {
	values, err := r.group.Values()
	if err != nil {
		return logic.PositionNone, &ReadError{Op: "sample keys", Lines: r.lines, Err: err}
	}
	return logic.PositionFromBits(values), nil
}

// Close releases the key lines.
func (r *KeyReader) Close() error {
	return r.group.Close()
}

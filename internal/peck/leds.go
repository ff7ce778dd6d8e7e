package peck

import (
	"errors"
	"fmt"

	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logic"
)

// LEDBank drives the three-channel LED behind each key.
// It keeps no state beyond what it last wrote to the lines.
type LEDBank struct {
	groups [logic.NumPositions]gpio.OutputGroup
	lines  [logic.NumPositions][]gpio.Line
}

// NewLEDBank requests every LED group on chip, driven to the Off pattern.
// On failure any group already requested is released.
func NewLEDBank(p gpio.Provider, chip string, offsets [logic.NumPositions][]int) (*LEDBank, error) {
	b := &LEDBank{}
	off := logic.ColorOff.Pattern().Values()

	for _, pos := range logic.Positions {
		ls := lines(chip, offsets[pos])
		if len(offsets[pos]) != logic.Channels {
			b.Close()
			return nil, &SetupError{
				Op:    "request " + pos.String() + " leds",
				Lines: ls,
				Err:   fmt.Errorf("got %d lines, want %d", len(offsets[pos]), logic.Channels),
			}
		}
		g, err := p.RequestOutputs(chip, offsets[pos], off)
		if err != nil {
			b.Close()
			return nil, &SetupError{Op: "request " + pos.String() + " leds", Lines: ls, Err: err}
		}
		b.groups[pos] = g
		b.lines[pos] = ls
	}
	return b, nil
}

// Set writes the pattern for color to the LED group of pos.
func (b *LEDBank) Set(pos logic.KeyPosition, color logic.LedColor) error {
	if !pos.Valid() {
		return &WriteError{Op: "set leds", Err: fmt.Errorf("invalid position %s", pos)}
	}
	if err := b.groups[pos].SetValues(color.Pattern().Values()); err != nil {
		return &WriteError{Op: "set " + pos.String() + " leds to " + color.String(), Lines: b.lines[pos], Err: err}
	}
	return nil
}

// Close releases every LED group.
func (b *LEDBank) Close() error {
	var errs []error
	for _, g := range b.groups {
		if g == nil {
			continue
		}
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package peck

import (
	"fmt"

	"github.com/sweeney/peckboard/internal/gpio"
)

// SetupError reports a line that could not be configured. The controller
// cannot be built.
type SetupError struct {
	Op    string
	Lines []gpio.Line
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("peck setup: %s %v: %v", e.Op, e.Lines, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// ReadError reports a failed key sample or interrupt wait. It ends monitoring.
type ReadError struct {
	Op    string
	Lines []gpio.Line
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("peck read: %s %v: %v", e.Op, e.Lines, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed LED write. It ends monitoring.
type WriteError struct {
	Op    string
	Lines []gpio.Line
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("peck write: %s %v: %v", e.Op, e.Lines, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func lines(chip string, offsets []int) []gpio.Line {
	ls := make([]gpio.Line, len(offsets))
	for i, o := range offsets {
		ls[i] = gpio.Line{Chip: chip, Offset: o}
	}
	return ls
}

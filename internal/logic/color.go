package logic

import "fmt"

// LedColor is the state of one key LED. Values cycle in declaration order.
type LedColor int

const (
	ColorOff LedColor = iota
	ColorBlue
	ColorRed
	ColorGreen
	ColorAll

	numColors = 5
)

// Colors lists every LedColor in cycle order, starting at ColorOff.
var Colors = [numColors]LedColor{ColorOff, ColorBlue, ColorRed, ColorGreen, ColorAll}

// Next returns the successor of c in the cycle Off → Blue → Red → Green → All → Off.
// Out-of-range values restart the cycle at ColorBlue, as if they were Off.
func Next(c LedColor) LedColor {
	if c < ColorOff || c > ColorAll {
		return ColorBlue
	}
	return (c + 1) % numColors
}

// Pattern returns the output levels that display c.
func (c LedColor) Pattern() Pattern {
	switch c {
	case ColorRed:
		return Pattern{1, 0, 0}
	case ColorBlue:
		return Pattern{0, 1, 0}
	case ColorGreen:
		return Pattern{0, 0, 1}
	case ColorAll:
		return Pattern{1, 1, 1}
	}
	return Pattern{0, 0, 0}
}

func (c LedColor) String() string {
	switch c {
	case ColorOff:
		return "OFF"
	case ColorBlue:
		return "BLUE"
	case ColorRed:
		return "RED"
	case ColorGreen:
		return "GREEN"
	case ColorAll:
		return "ALL"
	}
	return fmt.Sprintf("LedColor(%d)", int(c))
}

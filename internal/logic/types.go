// Package logic contains the pure peck-board rules: the LED color cycle,
// key position decoding and press coalescing.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Duration parameters.
package logic

// Channels is the number of physical color channels behind each key LED.
const Channels = 3

// Pattern is the per-channel output level for one LED group, in
// (red, blue, green) line order.
type Pattern [Channels]int

// Values returns the pattern as a slice suitable for a multi-line write.
func (p Pattern) Values() []int {
	return []int{p[0], p[1], p[2]}
}

// PressCounts tracks the number of accepted pecks per position since startup.
type PressCounts struct {
	Right  int
	Center int
	Left   int
}

// Add increments the counter for pos. The none sentinel is ignored.
func (c *PressCounts) Add(pos KeyPosition) {
	switch pos {
	case PositionRight:
		c.Right++
	case PositionCenter:
		c.Center++
	case PositionLeft:
		c.Left++
	}
}

// Get returns the counter for pos, or 0 for the none sentinel.
func (c PressCounts) Get(pos KeyPosition) int {
	switch pos {
	case PositionRight:
		return c.Right
	case PositionCenter:
		return c.Center
	case PositionLeft:
		return c.Left
	}
	return 0
}

// Total returns the sum over all positions.
func (c PressCounts) Total() int {
	return c.Right + c.Center + c.Left
}

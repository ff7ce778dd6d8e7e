package logic

// KeyPosition identifies one peck key. PositionNone means no key is pressed.
type KeyPosition int

const (
	PositionRight KeyPosition = iota
	PositionCenter
	PositionLeft

	// NumPositions is the number of physical keys.
	NumPositions = 3

	PositionNone KeyPosition = -1
)

// Positions lists the physical keys in line order.
var Positions = [NumPositions]KeyPosition{PositionRight, PositionCenter, PositionLeft}

// Valid reports whether p is a physical key (not the none sentinel).
func (p KeyPosition) Valid() bool {
	return p >= PositionRight && p <= PositionLeft
}

func (p KeyPosition) String() string {
	switch p {
	case PositionRight:
		return "RIGHT"
	case PositionCenter:
		return "CENTER"
	case PositionLeft:
		return "LEFT"
	}
	return "NONE"
}

// PositionFromBits decodes a key-line sample taken in fixed line order.
// The first asserted (non-zero) level wins; an all-zero sample is PositionNone.
// Levels beyond NumPositions are ignored.
func PositionFromBits(levels []int) KeyPosition {
	for i, v := range levels {
		if i >= NumPositions {
			break
		}
		if v != 0 {
			return Positions[i]
		}
	}
	return PositionNone
}

package model

// Direction is the sign of a reading, a vote or a position.
type Direction int

const (
	Bearish Direction = -1
	Neutral Direction = 0
	Bullish Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "BULLISH"
	case Bearish:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

// Side returns the order side that opens a position in this direction.
func (d Direction) Side() Side {
	if d == Bearish {
		return SideSell
	}
	return SideBuy
}

// Sign returns the direction as a float multiplier.
func (d Direction) Sign() float64 {
	return float64(d)
}

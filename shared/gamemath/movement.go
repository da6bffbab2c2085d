package gamemath

// DefaultMoveStep is how far a fully deflected axis moves a player in one
// simulation tick, in world units.
const DefaultMoveStep = 4.0

// Step advances a position by one tick of movement for the given wire axes.
func Step(x, y float64, axisX, axisY int16, step float64) (float64, float64) {
	return x + Normalized(axisX)*step, y + Normalized(axisY)*step
}

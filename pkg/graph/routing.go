package graph

// anchor returns where a wire attaches to a terminal: inputs along the top
// edge, outputs along the bottom edge, evenly spaced.
func anchor(n *Node, t *Terminal) Position {
	group := n.terminalsByDirection(t.Direction)
	idx := 0
	for i, candidate := range group {
		if candidate == t {
			idx = i
			break
		}
	}
	x := n.position.X + n.size.Width*(idx+1)/(len(group)+1)
	if t.Direction == Input {
		return Position{X: x, Y: n.position.Y}
	}
	return Position{X: x, Y: n.position.Y + n.size.Height}
}

// routeWire calculates the routing points for a wire using orthogonal routing
// Algorithm:
// 1. Start at the source anchor
// 2. End at the target anchor
// 3. If aligned vertically: straight line
// 4. Otherwise: vertical → horizontal → vertical
func routeWire(from, to Position) []Position {
	points := make([]Position, 0, 5)
	points = append(points, from)

	switch {
	case from.X == to.X:
		// Straight vertical line - no intermediate points needed
	case to.Y > from.Y:
		midY := (from.Y + to.Y) / 2
		points = append(points, Position{X: from.X, Y: midY}, Position{X: to.X, Y: midY})
	default:
		// Target is above source (backward wire): drop below, cross, climb
		gapY := 2
		points = append(points,
			Position{X: from.X, Y: from.Y + gapY},
			Position{X: to.X, Y: from.Y + gapY},
		)
	}

	return append(points, to)
}

package graph

import "fmt"

// Position represents a logical coordinate on the canvas
type Position struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// NewPosition creates a new position
func NewPosition(x, y int) Position {
	return Position{X: x, Y: y}
}

// String formats the position as [x,y].
func (p Position) String() string {
	return fmt.Sprintf("[%d,%d]", p.X, p.Y)
}

// Size represents the dimensions of a rectangular area
type Size struct {
	Width  int
	Height int
}

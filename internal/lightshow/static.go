package lightshow

import (
	"math"
	"time"
)

// constant renders the same colour on every LED.
type constant struct {
	kind  Kind
	frame Frame
}

func newConstant(kind Kind, level float64) *constant {
	return &constant{kind: kind, frame: newCanvas(level).frame()}
}

func (c *constant) Kind() Kind              { return c.kind }
func (c *constant) FPS() int                { return staticFPS }
func (c *constant) Resolution() int         { return Resolution }
func (c *constant) Frame(_ time.Time) Frame { return c.frame.Clone() }

// sinTurn returns sin of a fraction of a full turn.
func sinTurn(turns float64) float64 {
	return math.Sin(2 * math.Pi * turns)
}

package lightshow

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/ledtube-core/internal/dsp"
)

const pingPongRise = 0.9

// pingPong bounces a three-LED dot along the strip while its colour cycles
// through the hue wheel. A whole-frame smoothing filter leaves a fading tail.
type pingPong struct {
	params PingPongParams
	trail  *dsp.SmoothingFilter
}

func newPingPong(p PingPongParams) (*pingPong, error) {
	if p.MillisPerPulse <= 0 || p.MillisPerColorCycle <= 0 {
		return nil, fmt.Errorf("%w: periods must be positive", ErrInvalidParams)
	}
	trail, err := dsp.NewSmoothingFilterFilled(3*Resolution, 0, pingPongRise, p.TailFade)
	if err != nil {
		return nil, fmt.Errorf("%w: tail_fade: %v", ErrInvalidParams, err)
	}
	return &pingPong{params: p, trail: trail}, nil
}

func (p *pingPong) Kind() Kind      { return KindPingPong }
func (p *pingPong) FPS() int        { return animatedFPS }
func (p *pingPong) Resolution() int { return Resolution }

func (p *pingPong) Frame(now time.Time) Frame {
	ms := now.UnixMilli()
	center := p.dotPosition(ms)

	cycle := p.params.MillisPerColorCycle
	third := int64(cycle / 3)
	r := cyclePosition(ms, cycle) * 255
	g := cyclePosition(ms+third, cycle) * 255
	b := cyclePosition(ms+2*third, cycle) * 255

	target := newCanvas(0)
	for led := max(0, center-1); led <= min(center+1, Resolution-1); led++ {
		target.set(led, r, g, b)
	}

	smoothed, err := p.trail.Update(target.flatten())
	if err != nil {
		// Sizes are fixed at construction; unreachable.
		return target.frame()
	}
	return canvasFrom(smoothed).frame()
}

// dotPosition returns the index of the dot's centre LED at ms.
func (p *pingPong) dotPosition(ms int64) int {
	return int(math.Floor(cyclePosition(ms, p.params.MillisPerPulse) * float64(Resolution-1)))
}

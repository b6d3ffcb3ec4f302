package lightshow

import (
	"fmt"
	"time"
)

// pulsating fades the whole strip's red channel between a floor and full
// brightness on a sine wave.
type pulsating struct {
	period int
	floor  float64
}

func newPulsating(p PulsatingParams) (*pulsating, error) {
	if p.MillisPerPulse <= 0 {
		return nil, fmt.Errorf("%w: millis_per_pulse must be positive", ErrInvalidParams)
	}
	if p.MinIntensity == nil {
		return nil, fmt.Errorf("%w: min_intensity is required", ErrInvalidParams)
	}
	if *p.MinIntensity < 0 || *p.MinIntensity > 255 {
		return nil, fmt.Errorf("%w: min_intensity must be in [0, 255]", ErrInvalidParams)
	}
	return &pulsating{period: p.MillisPerPulse, floor: float64(*p.MinIntensity)}, nil
}

func (p *pulsating) Kind() Kind      { return KindPulsating }
func (p *pulsating) FPS() int        { return animatedFPS }
func (p *pulsating) Resolution() int { return Resolution }

func (p *pulsating) Frame(now time.Time) Frame {
	intensity := p.floor + cyclePosition(now.UnixMilli(), p.period)*(255-p.floor)

	c := newCanvas(0)
	for i := range c[0] {
		c[0][i] = intensity
	}
	return c.frame()
}

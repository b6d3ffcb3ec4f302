package lightshow

import (
	"fmt"
	"time"
)

// Kind names a show.
type Kind string

// The six shows.
const (
	KindAllOff      Kind = "all_off"
	KindStaticWhite Kind = "static_white"
	KindPulsating   Kind = "pulsating"
	KindPingPong    Kind = "ping_pong"
	KindMusicEnergy Kind = "music_energy"
	KindMusicScroll Kind = "music_scroll"
)

// Frame rates.
const (
	staticFPS   = 4
	animatedFPS = 70
)

// Kinds returns every show kind in display order.
func Kinds() []Kind {
	return []Kind{KindAllOff, KindStaticWhite, KindPulsating, KindPingPong, KindMusicEnergy, KindMusicScroll}
}

// ParseKind validates a show name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsMusic reports whether the kind renders from the audio spectrum.
func (k Kind) IsMusic() bool {
	return k == KindMusicEnergy || k == KindMusicScroll
}

// Generator produces frames for the streamer.
//
// Frame is called once per streamer tick from a single goroutine; stateful
// shows keep filters between calls and are not safe for concurrent use.
// The returned Frame is owned by the caller.
type Generator interface {
	Kind() Kind
	FPS() int
	Resolution() int
	Frame(now time.Time) Frame
}

// SpectrumSource supplies the newest audio spectrum.
// ok is false until the first spectrum has been published.
type SpectrumSource interface {
	Spectrum() (spectrum []float64, ok bool)
}

// PulsatingParams configures the pulsating red show.
type PulsatingParams struct {
	MillisPerPulse int `json:"millis_per_pulse"`

	// MinIntensity is the red floor. Nil means unset; 0 is a valid floor.
	MinIntensity *int `json:"min_intensity,omitempty"`
}

// PingPongParams configures the bouncing dot show.
type PingPongParams struct {
	MillisPerPulse      int     `json:"millis_per_pulse"`
	MillisPerColorCycle int     `json:"millis_per_color_cycle"`
	TailFade            float64 `json:"tail_fade"`
}

// Params holds per-show settings. Zero or nil fields fall back to defaults.
type Params struct {
	Pulsating PulsatingParams `json:"pulsating"`
	PingPong  PingPongParams  `json:"ping_pong"`
}

// DefaultParams returns the stock show settings.
func DefaultParams() Params {
	return Params{
		Pulsating: PulsatingParams{MillisPerPulse: 1000, MinIntensity: Intensity(20)},
		PingPong:  PingPongParams{MillisPerPulse: 2000, MillisPerColorCycle: 10000, TailFade: 0.2},
	}
}

// Intensity returns a pointer to v for PulsatingParams.MinIntensity.
func Intensity(v int) *int {
	return &v
}

// withDefaults fills zero and nil fields from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Pulsating.MillisPerPulse == 0 {
		p.Pulsating.MillisPerPulse = d.Pulsating.MillisPerPulse
	}
	if p.Pulsating.MinIntensity == nil {
		p.Pulsating.MinIntensity = d.Pulsating.MinIntensity
	}
	if p.PingPong.MillisPerPulse == 0 {
		p.PingPong.MillisPerPulse = d.PingPong.MillisPerPulse
	}
	if p.PingPong.MillisPerColorCycle == 0 {
		p.PingPong.MillisPerColorCycle = d.PingPong.MillisPerColorCycle
	}
	if p.PingPong.TailFade == 0 {
		p.PingPong.TailFade = d.PingPong.TailFade
	}
	return p
}

// New builds a fresh generator of the given kind. No state is shared with
// any previously built generator.
//
// Parameters:
//   - kind: one of Kinds()
//   - params: show settings; zero fields use defaults
//   - spectrum: audio spectrum, required only for music kinds
//
// Returns:
//   - Generator: ready to render
//   - error: ErrUnknownKind, ErrSpectrumRequired or ErrInvalidParams
func New(kind Kind, params Params, spectrum SpectrumSource) (Generator, error) {
	params = params.withDefaults()

	switch kind {
	case KindAllOff:
		return newConstant(KindAllOff, 0), nil
	case KindStaticWhite:
		return newConstant(KindStaticWhite, 255), nil
	case KindPulsating:
		return newPulsating(params.Pulsating)
	case KindPingPong:
		return newPingPong(params.PingPong)
	case KindMusicEnergy:
		if spectrum == nil {
			return nil, ErrSpectrumRequired
		}
		return newMusicEnergy(spectrum), nil
	case KindMusicScroll:
		if spectrum == nil {
			return nil, ErrSpectrumRequired
		}
		return newMusicScroll(spectrum), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// cyclePosition maps time onto a sine wave of the given period, returning
// a value in [0, 1].
func cyclePosition(millis int64, period int) float64 {
	step := float64(millis%int64(period)) / float64(period)
	return (sinTurn(step) + 1) / 2
}

package audio

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeRampWAV writes a 1 s mono 16-bit ramp (sample i has value i) at 8 kHz.
func writeRampWAV(t *testing.T) string {
	t.Helper()
	const rate = 8000

	path := filepath.Join(t.TempDir(), "ramp.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating wav: %v", err)
	}
	defer f.Close()

	data := make([]int, rate)
	for i := range data {
		data[i] = i
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing encoder: %v", err)
	}
	return path
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestOpenWAV_RealTimeWindows(t *testing.T) {
	src, err := OpenWAV(writeRampWAV(t), 4, false)
	if err != nil {
		t.Fatalf("OpenWAV() error = %v", err)
	}
	if src.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", src.SampleRate())
	}
	if src.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", src.Duration())
	}

	clock := &fakeClock{t: time.Unix(1000, 0)}
	src.now = clock.now
	ctx := context.Background()

	// First read starts playback at sample 0; earlier samples are silence.
	got, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if want := []float64{0, 0, 0, 0}; !floatsEqual(got.PCM, want) {
		t.Errorf("Read() at 0s = %v, want %v", got.PCM, want)
	}

	clock.t = clock.t.Add(500 * time.Millisecond)
	got, _ = src.Read(ctx) //nolint:errcheck // checked by content
	want := []float64{3997.0 / 32768, 3998.0 / 32768, 3999.0 / 32768, 4000.0 / 32768}
	if !floatsEqual(got.PCM, want) {
		t.Errorf("Read() at 0.5s = %v, want %v", got.PCM, want)
	}

	clock.t = clock.t.Add(time.Second)
	if _, err := src.Read(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Read() past end error = %v, want io.EOF", err)
	}
}

func TestOpenWAV_Loop(t *testing.T) {
	src, err := OpenWAV(writeRampWAV(t), 2, true)
	if err != nil {
		t.Fatalf("OpenWAV() error = %v", err)
	}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	src.now = clock.now
	ctx := context.Background()

	// Wrap-around at the start of the loop pulls from the end of the file.
	got, _ := src.Read(ctx) //nolint:errcheck // checked by content
	if want := []float64{7999.0 / 32768, 0}; !floatsEqual(got.PCM, want) {
		t.Errorf("Read() at 0s = %v, want %v", got.PCM, want)
	}

	clock.t = clock.t.Add(1250 * time.Millisecond)
	got, err = src.Read(ctx)
	if err != nil {
		t.Fatalf("Read() after loop error = %v", err)
	}
	if want := []float64{1999.0 / 32768, 2000.0 / 32768}; !floatsEqual(got.PCM, want) {
		t.Errorf("Read() at 1.25s = %v, want %v", got.PCM, want)
	}
}

func TestOpenWAV_Errors(t *testing.T) {
	if _, err := OpenWAV(filepath.Join(t.TempDir(), "missing.wav"), 4, false); err == nil {
		t.Error("OpenWAV() missing file should fail")
	}
	if _, err := OpenWAV(writeRampWAV(t), 0, false); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("OpenWAV() zero window error = %v, want ErrInvalidWAV", err)
	}
	if _, err := DecodeWAV(strings.NewReader("definitely not a wav file"), 4, false); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("DecodeWAV() garbage error = %v, want ErrInvalidWAV", err)
	}
}

func TestWAVSource_CancelledContext(t *testing.T) {
	src, err := OpenWAV(writeRampWAV(t), 4, true)
	if err != nil {
		t.Fatalf("OpenWAV() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestMixDown(t *testing.T) {
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 8000},
		Data:           []int{100, 300, -200, 0},
		SourceBitDepth: 16,
	}
	got := mixDown(buf)
	want := []float64{200.0 / 32768, -100.0 / 32768}
	if !floatsEqual(got, want) {
		t.Errorf("mixDown() = %v, want %v", got, want)
	}
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-12 {
			return false
		}
	}
	return true
}

package audio

import (
	"context"
	"errors"
	"testing"
)

func TestFeedSource_LatestWins(t *testing.T) {
	f := NewFeedSource()
	ctx := context.Background()

	if _, err := f.Read(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Read() on empty feed error = %v, want ErrNotReady", err)
	}

	f.PushPCM([]float64{1})
	f.PushPCM([]float64{2})
	f.PushBins([]complex128{3})

	got, err := f.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Bins) != 1 || got.Bins[0] != 3 || got.PCM != nil {
		t.Errorf("Read() = %+v, want newest bins buffer", got)
	}
	if f.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", f.Dropped())
	}

	if _, err := f.Read(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("second Read() error = %v, want ErrNotReady", err)
	}
}

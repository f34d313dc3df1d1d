package pad

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encodeJPEG(t *testing.T, fill uint8, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: fill})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestProcessFrameBoundsHashRing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecentHashes = 4
	cfg.ReplayWindowMs = 1_000_000 // effectively no eviction by age in this test
	e := New(cfg)
	state := &State{}

	for i := 0; i < 20; i++ {
		frame := encodeJPEG(t, uint8(i*7), 16, 16)
		e.ProcessFrame(state, uint64(i*100), frame)
	}

	if len(state.recentHashes) > cfg.MaxRecentHashes {
		t.Fatalf("ring grew past cap: got %d entries, want <= %d", len(state.recentHashes), cfg.MaxRecentHashes)
	}
}

func TestProcessFrameEvictsStaleHashes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReplayWindowMs = 500
	e := New(cfg)
	state := &State{}

	frame := encodeJPEG(t, 50, 16, 16)
	e.ProcessFrame(state, 0, frame)
	e.ProcessFrame(state, 10_000, frame)

	if len(state.recentHashes) != 1 {
		t.Fatalf("expected stale entry evicted, got %d entries", len(state.recentHashes))
	}
}

func TestProcessFrameDetectsDuplicateSymmetrically(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	state := &State{}

	frame := encodeJPEG(t, 80, 16, 16)
	sig1 := e.ProcessFrame(state, 0, frame)
	sig2 := e.ProcessFrame(state, 50, frame)

	if sig1.DuplicateHash {
		t.Fatal("first occurrence must not be flagged as duplicate")
	}
	if !sig2.DuplicateHash {
		t.Fatal("identical repeated frame must be flagged as duplicate")
	}
}

func TestProcessFrameFlagsReplayOnBackwardsTimestamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowClockSkewMs = 100
	e := New(cfg)
	state := &State{}

	frame := encodeJPEG(t, 30, 16, 16)
	e.ProcessFrame(state, 5000, frame)
	sig := e.ProcessFrame(state, 1000, frame)

	if !sig.SuspectedReplay {
		t.Fatal("expected suspected replay for a timestamp that moved far backwards")
	}
}

func TestProcessFrameToleratesClockSkewWithinBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowClockSkewMs = 1000
	e := New(cfg)
	state := &State{}

	frame := encodeJPEG(t, 30, 16, 16)
	e.ProcessFrame(state, 5000, frame)
	sig := e.ProcessFrame(state, 4500, frame)

	if sig.SuspectedReplay {
		t.Fatal("small backwards skew within AllowClockSkewMs must not be flagged")
	}
}

func TestProcessFrameDegradesGracefullyOnDecodeFailure(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	state := &State{}

	good := encodeJPEG(t, 40, 16, 16)
	e.ProcessFrame(state, 0, good)
	ringLenBefore := len(state.recentHashes)
	grayBefore := state.lastSmallGray

	sig := e.ProcessFrame(state, 100, []byte("not an image"))

	if sig.SuspectedReplay || sig.DuplicateHash || sig.Flicker != 0 {
		t.Fatalf("expected zero-value signals on decode failure, got %+v", sig)
	}
	if len(state.recentHashes) != ringLenBefore {
		t.Fatal("decode failure must not mutate the hash ring")
	}
	if state.lastSmallGray != grayBefore {
		t.Fatal("decode failure must not mutate the flicker reference frame")
	}
	if !state.hasLastTs || state.lastTs != 100 {
		t.Fatal("decode failure must still advance lastTs")
	}
}

func TestProcessFrameComputesFlickerBetweenDistinctFrames(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	state := &State{}

	dark := encodeJPEG(t, 10, 16, 16)
	bright := encodeJPEG(t, 250, 16, 16)

	e.ProcessFrame(state, 0, dark)
	sig := e.ProcessFrame(state, 100, bright)

	if sig.Flicker <= 0 {
		t.Fatalf("expected nonzero flicker between dark and bright frames, got %v", sig.Flicker)
	}
}

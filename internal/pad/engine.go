// Package pad implements the presentation-attack-detection signal
// pipeline: a per-session perceptual-hash ring for replay/duplicate
// detection and a flicker metric, both computed online and bounded in
// memory under an adversarial input stream.
package pad

import (
	"image"

	"github.com/livenessd/server/internal/imaging"
)

// Config holds the tunables for one PAD engine instance. Defaults mirror
// the original prototype and spec §4.2.
type Config struct {
	ReplayWindowMs            int64
	AllowClockSkewMs          int64
	MaxRecentHashes           int
	DuplicateHammingThreshold int
	FlickerSize               int
	FlickerSuspectThreshold   float64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ReplayWindowMs:            5000,
		AllowClockSkewMs:          1000,
		MaxRecentHashes:           32,
		DuplicateHammingThreshold: 0,
		FlickerSize:               32,
		FlickerSuspectThreshold:   0.2,
	}
}

type hashEntry struct {
	hash uint64
	ts   uint64
}

// State is the per-session mutable PAD state: the recent-hash ring, the
// last flicker reference frame, and the last-seen timestamp.
type State struct {
	lastTs        uint64
	hasLastTs     bool
	recentHashes  []hashEntry
	lastSmallGray *image.Gray
}

// Signals is the PAD verdict for one frame.
type Signals struct {
	SuspectedReplay bool
	DuplicateHash   bool
	Flicker         float64
}

// Engine runs the PAD pipeline for a set of sessions sharing one Config.
// Each session owns its own *State; the Engine itself holds no mutable
// state and is safe to share.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// ProcessFrame computes PAD signals for one frame and mutates state in
// place per spec §4.2. If the image cannot be decoded, PAD emits a
// zero-value Signals and leaves the hash ring and flicker reference
// untouched, but still advances lastTs.
func (e *Engine) ProcessFrame(state *State, ts uint64, imageBytes []byte) Signals {
	var out Signals

	if state.hasLastTs {
		if ts+uint64(e.cfg.AllowClockSkewMs) < state.lastTs {
			out.SuspectedReplay = true
		}
	}
	state.lastTs = ts
	state.hasLastTs = true

	img, err := imaging.Decode(imageBytes)
	if err != nil {
		return out
	}
	gray := imaging.ToGray(img)

	hash := perceptualHash(gray)
	state.recentHashes = evictExpired(state.recentHashes, ts, uint64(e.cfg.ReplayWindowMs))
	for _, entry := range state.recentHashes {
		if hammingDistance(entry.hash, hash) <= e.cfg.DuplicateHammingThreshold {
			out.DuplicateHash = true
			break
		}
	}
	state.recentHashes = append(state.recentHashes, hashEntry{hash: hash, ts: ts})
	if len(state.recentHashes) > e.cfg.MaxRecentHashes {
		state.recentHashes = state.recentHashes[len(state.recentHashes)-e.cfg.MaxRecentHashes:]
	}

	flickerSize := e.cfg.FlickerSize
	small := imaging.ResizeGray(gray, flickerSize, flickerSize)
	if state.lastSmallGray != nil {
		out.Flicker = meanAbsDiff(state.lastSmallGray, small)
	}
	state.lastSmallGray = small

	return out
}

// evictExpired drops entries from the front of the ring older than
// windowMs relative to ts, preserving P1 (bounded buffers, bounded age).
func evictExpired(entries []hashEntry, ts, windowMs uint64) []hashEntry {
	i := 0
	for i < len(entries) {
		age := int64(ts) - int64(entries[i].ts)
		if age > int64(windowMs) {
			i++
			continue
		}
		break
	}
	return entries[i:]
}

func meanAbsDiff(prev, curr *image.Gray) float64 {
	pb, cb := prev.Bounds(), curr.Bounds()
	w := pb.Dx()
	if cb.Dx() < w {
		w = cb.Dx()
	}
	h := pb.Dy()
	if cb.Dy() < h {
		h = cb.Dy()
	}
	if w <= 0 || h <= 0 {
		return 0
	}

	var acc float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := prev.GrayAt(pb.Min.X+x, pb.Min.Y+y).Y
			c := curr.GrayAt(cb.Min.X+x, cb.Min.Y+y).Y
			diff := int(p) - int(c)
			if diff < 0 {
				diff = -diff
			}
			acc += float64(diff) / 255.0
		}
	}
	return acc / float64(w*h)
}

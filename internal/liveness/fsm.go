package liveness

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/livenessd/server/internal/wire"
)

// ActiveChallengeKinds is the default challenge set offered at
// handshake and cycled by the buffered-path advancement rule.
var ActiveChallengeKinds = []wire.ChallengeKind{
	wire.OpenMouth,
	wire.TurnLeft,
	wire.TurnRight,
	wire.HeadUp,
}

// SupportedChallengeKinds is the full set recognized by the protocol,
// including the optional kinds not offered by default.
var SupportedChallengeKinds = []wire.ChallengeKind{
	wire.Blink,
	wire.OpenMouth,
	wire.TurnLeft,
	wire.TurnRight,
	wire.HeadUp,
	wire.HeadDown,
}

const maxChallenges = 3

// BeginAttempt clears the FSM's counters, moves it to Prompting, and
// issues the first prompt of a fresh attempt, per spec §4.4 "Initial prompt".
func BeginAttempt(f *FSM) wire.PromptChallenge {
	f.State = Prompting
	f.CurrentID = "c1"
	f.CurrentKind = wire.OpenMouth
	f.Completed = 0
	f.Failed = 0
	f.FailReason = ""
	return wire.PromptChallenge{ID: f.CurrentID, Kind: f.CurrentKind, TimeoutMs: 5000}
}

// EvaluateStreamingAdmission re-checks the current prompt's admission
// condition against the session's rolling telemetry history. Only valid
// while the FSM is Prompting; callers must guard that themselves.
func EvaluateStreamingAdmission(t *TelemetryState, kind wire.ChallengeKind) bool {
	switch kind {
	case wire.Blink:
		return t.MotionHits >= 10 && hasSpike(t.MotionScores)
	case wire.OpenMouth:
		return t.MotionHits >= 15 && isSustained(t.MotionScores)
	case wire.TurnLeft, wire.TurnRight:
		return t.MotionHits >= 20 && horizontalDisplacement(t.FaceCenters) > 15
	case wire.HeadUp, wire.HeadDown:
		return t.MotionHits >= 25 && verticalDisplacement(t.FaceCenters) > 10
	default:
		return false
	}
}

func hasSpike(scores []float64) bool {
	last := lastN(scores, 10)
	if len(last) == 0 {
		return false
	}
	mean := meanOf(last)
	max := maxOf(last)
	return max > 3*mean && max > 0.05
}

func isSustained(scores []float64) bool {
	last := lastN(scores, 15)
	if len(last) == 0 {
		return false
	}
	mean := meanOf(last)
	if mean <= 0.04 {
		return false
	}
	above := 0
	for _, s := range last {
		if s > 0.03 {
			above++
		}
	}
	return above >= 8
}

func horizontalDisplacement(points []Point) float64 {
	if len(points) < 20 {
		return 0
	}
	return math.Abs(points[len(points)-1].X - points[0].X)
}

func verticalDisplacement(points []Point) float64 {
	if len(points) < 20 {
		return 0
	}
	return math.Abs(points[len(points)-1].Y - points[0].Y)
}

func lastN(s []float64, n int) []float64 {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func meanOf(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

func maxOf(s []float64) float64 {
	m := s[0]
	for _, v := range s[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// AdmitStreaming handles a streaming-path admission: resets telemetry,
// then either finalizes a pass or issues the next random-distinct
// prompt. Returns the new prompt if the attempt continues, or nil if
// the attempt just passed.
func AdmitStreaming(f *FSM, t *TelemetryState) *wire.PromptChallenge {
	f.Completed++
	t.Reset()

	if f.Completed >= maxChallenges {
		f.State = Passed
		return nil
	}

	next := randomDistinctKind(f.CurrentKind)
	f.CurrentID = fmt.Sprintf("c%d", f.Completed+1)
	f.CurrentKind = next
	f.State = Prompting
	return &wire.PromptChallenge{ID: f.CurrentID, Kind: f.CurrentKind, TimeoutMs: 5000}
}

func randomDistinctKind(current wire.ChallengeKind) wire.ChallengeKind {
	candidates := make([]wire.ChallengeKind, 0, len(ActiveChallengeKinds))
	for _, k := range ActiveChallengeKinds {
		if k != current {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return current
	}
	return candidates[rand.Intn(len(candidates))]
}

// AdvanceBuffered applies the buffered-path advancement rule from spec
// §4.4: on pass, increment Completed; on fail, increment Failed; while
// the attempt continues, issue the next prompt deterministically keyed
// off the total number of resolved challenges so far.
func AdvanceBuffered(f *FSM, passed bool) *wire.PromptChallenge {
	if passed {
		f.Completed++
	} else {
		f.Failed++
	}

	if f.Completed+f.Failed >= maxChallenges {
		if f.Completed >= maxChallenges {
			f.State = Passed
		} else {
			f.State = Failed
		}
		return nil
	}

	next := deterministicNextKind(f.CurrentKind, f.Completed+f.Failed)
	f.CurrentID = fmt.Sprintf("c%d", f.Completed+f.Failed+1)
	f.CurrentKind = next
	f.State = Prompting
	return &wire.PromptChallenge{ID: f.CurrentID, Kind: f.CurrentKind, TimeoutMs: 5000}
}

func deterministicNextKind(current wire.ChallengeKind, resolved int) wire.ChallengeKind {
	candidates := make([]wire.ChallengeKind, 0, len(ActiveChallengeKinds))
	for _, k := range ActiveChallengeKinds {
		if k != current {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return current
	}
	return candidates[resolved%len(candidates)]
}

// Package liveness owns the per-session challenge state machine: the
// streaming admission table driven by telemetry, the buffered-evidence
// analyzer driven by challenge-start/batch/end, and the session map
// that both the connection handler and the HTTP surface operate on.
package liveness

import (
	"github.com/livenessd/server/internal/pad"
	"github.com/livenessd/server/internal/wire"
)

// State is one of the four FSM states from spec §3.
type State int

const (
	Idle State = iota
	Prompting
	Passed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Prompting:
		return "prompting"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FSM is the challenge-progress state carried on a session.
type FSM struct {
	State          State
	CurrentID      string            // e.g. "c1", "c2", "c3"
	CurrentKind    wire.ChallengeKind
	Completed      int
	Failed         int
	FailReason     string
}

// Metrics tracks per-session frame accounting surfaced on /session/:id.
// P95RTTMs mirrors the Rust prototype's Option<u32> placeholder: no RTT
// sampler is wired up yet, so it stays nil until one is.
type Metrics struct {
	FramesReceived int
	Throttled      int
	P95RTTMs       *uint32
}

// TelemetryState is the rolling streaming-evidence history bounded at
// 30 entries per spec §3.
type TelemetryState struct {
	MotionScores []float64
	FaceCenters  []Point
	MotionHits   int
}

// Point is a 2-D pixel coordinate; used for face-center history.
type Point struct {
	X, Y float64
}

const historyCap = 30

// PushMotionScore appends a motion score, evicting the oldest entry once
// the rolling history exceeds its cap, and bumps MotionHits when the
// score clears the streaming admission threshold.
func (t *TelemetryState) PushMotionScore(score float64) {
	t.MotionScores = appendCapped(t.MotionScores, score, historyCap)
	if score >= 0.02 {
		t.MotionHits++
	}
}

// PushFaceCenter appends a detected face center to the rolling history.
func (t *TelemetryState) PushFaceCenter(p Point) {
	t.FaceCenters = append(t.FaceCenters, p)
	if len(t.FaceCenters) > historyCap {
		t.FaceCenters = t.FaceCenters[len(t.FaceCenters)-historyCap:]
	}
}

// Reset clears streaming history, used on challenge admission and on
// attempt restart.
func (t *TelemetryState) Reset() {
	t.MotionScores = nil
	t.FaceCenters = nil
	t.MotionHits = 0
}

func appendCapped(s []float64, v float64, cap int) []float64 {
	s = append(s, v)
	if len(s) > cap {
		s = s[len(s)-cap:]
	}
	return s
}

// ChallengeFrame is one element of a buffered challenge-frame-batch.
type ChallengeFrame struct {
	Timestamp   uint64
	FrameID     string
	FacePresent bool
	HasFace     bool // whether FacePresent was reported at all
	MotionScore float64
	HasMotion   bool
	HasLandmarks bool
}

// ChallengeBuffer accumulates buffered evidence between challenge-start
// and challenge-end for one (attemptId, challengeId) pair.
type ChallengeBuffer struct {
	AttemptID       string
	ChallengeID     string
	ChallengeType   wire.ChallengeKind
	StartTS         uint64
	ExpectedFrames  int
	GestureDetected bool
	Frames          []ChallengeFrame
	ReceivedBatches int
}

// Session is the full per-connection state owned by the session map.
type Session struct {
	ID         string
	Token      string
	AttemptID  string
	Metrics    Metrics
	FSM        FSM
	PadState   pad.State
	Telemetry  TelemetryState
	Buffer     *ChallengeBuffer

	LastFrameAcceptedAt uint64
	HasLastFrameAt      bool

	// Bound is true while a websocket connection owns this session. A
	// second handshake attempt against the same session id is rejected
	// rather than displacing the first connection.
	Bound bool
}

// NewSession constructs a session in its initial Idle state, ready for
// the connection handler to drive through the handshake.
func NewSession(id, token, attemptID string) *Session {
	return &Session{ID: id, Token: token, AttemptID: attemptID}
}

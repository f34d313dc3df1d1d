// Package wire defines the tagged JSON message schema exchanged over the
// duplex liveness channel and the binary frame envelope carried inside it.
package wire

import "encoding/json"

// Client message type tags.
const (
	TypeHello               = "hello"
	TypeFrame                = "frame"
	TypeTelemetry            = "telemetry"
	TypeFeedback             = "feedback"
	TypeChallengeStart       = "challengeStart"
	TypeChallengeFrameBatch  = "challengeFrameBatch"
	TypeChallengeEnd         = "challengeEnd"
)

// Server message type tags.
const (
	TypeHelloAck        = "helloAck"
	TypeError           = "error"
	TypeThrottle        = "throttle"
	TypePrompt          = "prompt"
	TypeResult          = "result"
	TypeFrameAck        = "frameAck"
	TypeChallengeResult = "challengeResult"
)

// Error codes used in server Error messages.
const (
	ErrCodeInvalidFrame  = "invalid-frame"
	ErrCodeBadHandshake  = "bad-handshake"
	ErrCodeUnauthorized  = "unauthorized"
)

// ChallengeKind is the closed set of gestures the protocol names.
type ChallengeKind string

const (
	Blink      ChallengeKind = "blink"
	OpenMouth  ChallengeKind = "open-mouth"
	TurnLeft   ChallengeKind = "turn-left"
	TurnRight  ChallengeKind = "turn-right"
	HeadUp     ChallengeKind = "head-up"
	HeadDown   ChallengeKind = "head-down"
)

// Envelope is the generic shape every inbound text message is first
// unmarshaled into, so the connection handler can dispatch on Type before
// decoding the full payload.
type Envelope struct {
	Type string `json:"type"`
}

// ClientInfo identifies the SDK sending frames.
type ClientInfo struct {
	SDKVersion string `json:"sdkVersion"`
	Platform   string `json:"platform"`
}

// Hello is the first message a client must send on a new connection.
type Hello struct {
	Type      string     `json:"type"`
	SessionID string     `json:"sessionId"`
	Token     string     `json:"token"`
	Client    ClientInfo `json:"client"`
}

// Hints carries optional pose estimates alongside a frame.
type Hints struct {
	Roll  *float64 `json:"roll,omitempty"`
	Pitch *float64 `json:"pitch,omitempty"`
	Yaw   *float64 `json:"yaw,omitempty"`
}

// FaceBox is a detector bounding box in image pixel coordinates.
type FaceBox struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Score float64 `json:"score,omitempty"`
}

// Frame is a JSON-encoded frame message carrying base64 image data.
type Frame struct {
	Type   string  `json:"type"`
	Ts     uint64  `json:"ts"`
	Format string  `json:"format"`
	Data   *string `json:"data,omitempty"`
	Hints  *Hints  `json:"hints,omitempty"`
}

// KnownFrameFormats is the whitelist of image codecs a JSON frame
// message may declare. Anything else is an invalid-frame per spec §7's
// "unknown format string" trigger.
var KnownFrameFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
}

// Telemetry is the lightweight per-tick signal the client streams.
type Telemetry struct {
	Type        string   `json:"type"`
	FPS         *float64 `json:"fps,omitempty"`
	RTTMs       *uint32  `json:"rttMs,omitempty"`
	CamWidth    *uint32  `json:"camWidth,omitempty"`
	CamHeight   *uint32  `json:"camHeight,omitempty"`
	MotionScore *float64 `json:"motionScore,omitempty"`
	AHash       *uint64  `json:"ahash,omitempty"`
	FacePresent *bool    `json:"facePresent,omitempty"`
	FaceBox     *FaceBox `json:"faceBox,omitempty"`
}

// Feedback carries client-reported liveness/spoof confidence, mostly
// informational; the server does not gate decisions on it.
type Feedback struct {
	Type     string         `json:"type"`
	Status   *string        `json:"status,omitempty"`
	Liveness *float64       `json:"liveness,omitempty"`
	Spoof    *float64       `json:"spoof,omitempty"`
	Kind     *ChallengeKind `json:"kind,omitempty"`
	OK       *bool          `json:"ok,omitempty"`
}

// ChallengeFrameElement is one buffered frame inside a challenge batch.
type ChallengeFrameElement struct {
	Timestamp   uint64         `json:"timestamp"`
	FrameID     string         `json:"frameId"`
	ImageData   *string        `json:"imageData,omitempty"`
	MotionScore *float64       `json:"motionScore,omitempty"`
	AHash       *uint64        `json:"ahash,omitempty"`
	FacePresent *bool          `json:"facePresent,omitempty"`
	FaceBox     *FaceBox       `json:"faceBox,omitempty"`
	Landmarks   json.RawMessage `json:"landmarks,omitempty"`
	Telemetry   json.RawMessage `json:"telemetry,omitempty"`
}

// ChallengeStart opens the buffered-evidence path for one challenge.
type ChallengeStart struct {
	Type             string        `json:"type"`
	AttemptID        string        `json:"attemptId"`
	ChallengeID      string        `json:"challengeId"`
	ChallengeType    ChallengeKind `json:"challengeType"`
	StartTime        uint64        `json:"startTime"`
	TotalFrames      int           `json:"totalFrames"`
	GestureDetected  bool          `json:"gestureDetected"`
}

// ChallengeFrameBatch appends buffered frames to an open challenge.
type ChallengeFrameBatch struct {
	Type        string                  `json:"type"`
	AttemptID   string                  `json:"attemptId"`
	ChallengeID string                  `json:"challengeId"`
	BatchIndex  int                     `json:"batchIndex"`
	Frames      []ChallengeFrameElement `json:"frames"`
}

// ChallengeEnd closes a buffered challenge and requests analysis.
type ChallengeEnd struct {
	Type        string `json:"type"`
	AttemptID   string `json:"attemptId"`
	ChallengeID string `json:"challengeId"`
	Timestamp   uint64 `json:"timestamp"`
}

// --- server -> client ---

// HelloAck acknowledges a successful handshake with the supported set.
type HelloAck struct {
	Type       string   `json:"type"`
	Challenges []string `json:"challenges"`
}

// Error reports a protocol-level failure.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Throttle informs the client a frame was dropped by the rate limiter.
type Throttle struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	MaxFPS int    `json:"maxFps"`
}

// PromptChallenge names the next gesture to perform.
type PromptChallenge struct {
	ID        string        `json:"id"`
	Kind      ChallengeKind `json:"kind"`
	TimeoutMs int           `json:"timeoutMs"`
	AttemptID string        `json:"attemptId"`
}

// Prompt asks the user to perform a gesture.
type Prompt struct {
	Type      string          `json:"type"`
	Challenge PromptChallenge `json:"challenge"`
}

// Decision is the pass/fail verdict for an attempt or a single challenge.
type Decision struct {
	Passed bool    `json:"passed"`
	Reason *string `json:"reason,omitempty"`
}

// Result is the final attempt-level verdict.
type Result struct {
	Type      string   `json:"type"`
	AttemptID string   `json:"attemptId"`
	Decision  Decision `json:"decision"`
}

// FaceDebug is optional detector debug info echoed on a frame ack.
type FaceDebug struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Score float64 `json:"score"`
}

// PadDebug is the PAD signal set echoed on a frame ack.
type PadDebug struct {
	SuspectedReplay bool    `json:"suspectedReplay"`
	DuplicateHash   bool    `json:"duplicateHash"`
	Flicker         float64 `json:"flicker"`
}

// FrameAck confirms receipt of one frame.
type FrameAck struct {
	Type  string     `json:"type"`
	Ts    uint64     `json:"ts"`
	RTTMs *uint32    `json:"rttMs,omitempty"`
	Face  *FaceDebug `json:"face,omitempty"`
	Pad   *PadDebug  `json:"pad,omitempty"`
}

// ChallengeAnalysis is the computed quality/confidence summary for one
// closed challenge buffer.
type ChallengeAnalysis struct {
	TotalFrames          int     `json:"totalFrames"`
	FramesWithFace       int     `json:"framesWithFace"`
	FramesWithLandmarks  int     `json:"framesWithLandmarks"`
	AverageMotionScore   float64 `json:"averageMotionScore"`
	FaceDetectionRate    float64 `json:"faceDetectionRate"`
	GestureConfidence    float64 `json:"gestureConfidence"`
	QualityScore         float64 `json:"qualityScore"`
	ProcessingTimeMs     int64   `json:"processingTimeMs"`
}

// ChallengeResult is emitted after analyzing a closed challenge buffer.
type ChallengeResult struct {
	Type        string            `json:"type"`
	AttemptID   string            `json:"attemptId"`
	ChallengeID string            `json:"challengeId"`
	Decision    Decision          `json:"decision"`
	Analysis    ChallengeAnalysis `json:"analysis"`
}

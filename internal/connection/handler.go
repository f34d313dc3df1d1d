package connection

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livenessd/server/internal/detector"
	"github.com/livenessd/server/internal/liveness"
	"github.com/livenessd/server/internal/logging"
	"github.com/livenessd/server/internal/pad"
	"github.com/livenessd/server/internal/wire"
)

// Conn is the subset of *websocket.Conn the handler needs, narrowed so
// tests can drive the loop against an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Handler runs one connection's duplex message loop. The session bound
// to a connection is fixed at handshake time from the hello message's
// sessionId — never re-derived from "the session currently in the map".
type Handler struct {
	Manager  *liveness.Manager
	Detector *detector.Adapter
	Pad      *pad.Engine
	Limiter  *Limiter
	Clock    func() uint64
}

// NewHandler builds a Handler with a wall-clock Clock.
func NewHandler(mgr *liveness.Manager, det *detector.Adapter, padEngine *pad.Engine, maxFPS int) *Handler {
	return &Handler{
		Manager:  mgr,
		Detector: det,
		Pad:      padEngine,
		Limiter:  NewLimiter(maxFPS),
		Clock:    func() uint64 { return uint64(time.Now().UnixMilli()) },
	}
}

// Serve runs the connection loop to completion: handshake, then dispatch
// until the transport closes or a terminal protocol error occurs.
func (h *Handler) Serve(conn Conn) {
	log := logging.L("connection")
	defer conn.Close()

	sessionID, err := h.handshake(conn)
	if err != nil {
		log.Debug("handshake failed", logging.KeyError, err.Error())
		return
	}
	log = logging.WithAttempt(log, sessionID, "")
	defer h.Manager.WithLock(sessionID, func(s *liveness.Session) {
		s.Bound = false
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			h.dispatchText(conn, sessionID, data, log)
		case websocket.BinaryMessage:
			h.dispatchBinary(conn, sessionID, data, log)
		case websocket.PingMessage, websocket.PongMessage:
			// gorilla answers pings automatically via its default handler;
			// pongs carry no protocol meaning here.
		case websocket.CloseMessage:
			return
		}
	}
}

// handshake blocks for the first message, validates it is a hello with
// a matching token, and binds the connection to that session id.
func (h *Handler) handshake(conn Conn) (string, error) {
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read first message: %w", err)
	}
	if msgType != websocket.TextMessage {
		sendError(conn, wire.ErrCodeBadHandshake, "first message must be text hello")
		return "", fmt.Errorf("%s: first message was not text", wire.ErrCodeBadHandshake)
	}

	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != wire.TypeHello {
		sendError(conn, wire.ErrCodeBadHandshake, "first message must be hello")
		return "", fmt.Errorf("%s: first message was not hello", wire.ErrCodeBadHandshake)
	}

	var hello wire.Hello
	if err := json.Unmarshal(data, &hello); err != nil {
		sendError(conn, wire.ErrCodeBadHandshake, "malformed hello")
		return "", fmt.Errorf("%s: malformed hello", wire.ErrCodeBadHandshake)
	}

	session, ok := h.Manager.Get(hello.SessionID)
	if !ok || session.Token != hello.Token {
		sendError(conn, wire.ErrCodeUnauthorized, "token mismatch")
		return "", fmt.Errorf("%s: token mismatch", wire.ErrCodeUnauthorized)
	}

	var alreadyBound bool
	h.Manager.WithLock(hello.SessionID, func(s *liveness.Session) {
		if s.Bound {
			alreadyBound = true
			return
		}
		s.Bound = true
	})
	if alreadyBound {
		sendError(conn, wire.ErrCodeUnauthorized, "session already has an active connection")
		return "", fmt.Errorf("%s: session already bound", wire.ErrCodeUnauthorized)
	}

	ack := wire.HelloAck{Type: wire.TypeHelloAck, Challenges: challengeStrings(liveness.ActiveChallengeKinds)}
	if err := conn.WriteJSON(ack); err != nil {
		return "", fmt.Errorf("send helloAck: %w", err)
	}

	var prompt wire.PromptChallenge
	h.Manager.WithLock(hello.SessionID, func(s *liveness.Session) {
		p := liveness.BeginAttempt(&s.FSM)
		p.AttemptID = s.AttemptID
		prompt = p
	})
	conn.WriteJSON(wire.Prompt{Type: wire.TypePrompt, Challenge: prompt})

	return hello.SessionID, nil
}

func challengeStrings(kinds []wire.ChallengeKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func sendError(conn Conn, code, message string) {
	conn.WriteJSON(wire.Error{Type: wire.TypeError, Code: code, Message: message})
}

func (h *Handler) dispatchText(conn Conn, sessionID string, data []byte, log interface{ Warn(string, ...any) }) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		sendError(conn, wire.ErrCodeInvalidFrame, "malformed message")
		return
	}

	switch env.Type {
	case wire.TypeFrame:
		h.handleJSONFrame(conn, sessionID, data)
	case wire.TypeTelemetry:
		h.handleTelemetry(conn, sessionID, data)
	case wire.TypeFeedback:
		// Informational only; the server does not gate decisions on it.
	case wire.TypeChallengeStart:
		h.handleChallengeStart(sessionID, data)
	case wire.TypeChallengeFrameBatch:
		h.handleChallengeFrameBatch(sessionID, data, log)
	case wire.TypeChallengeEnd:
		h.handleChallengeEnd(conn, sessionID, data)
	default:
		// Unknown tags are ignored rather than treated as invalid-frame;
		// only the binary/JSON frame payload itself is validated that strictly.
	}
}

func (h *Handler) dispatchBinary(conn Conn, sessionID string, data []byte, log interface{ Warn(string, ...any) }) {
	bf, err := wire.DecodeBinaryFrame(data)
	if err != nil {
		sendError(conn, wire.ErrCodeInvalidFrame, err.Error())
		return
	}
	h.processFrame(conn, sessionID, bf.Ts, bf.Payload)
}

func (h *Handler) handleJSONFrame(conn Conn, sessionID string, data []byte) {
	var f wire.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		sendError(conn, wire.ErrCodeInvalidFrame, "malformed frame")
		return
	}
	if f.Data == nil {
		sendError(conn, wire.ErrCodeInvalidFrame, "missing frame data")
		return
	}
	if !wire.KnownFrameFormats[f.Format] {
		sendError(conn, wire.ErrCodeInvalidFrame, "unknown format string")
		return
	}
	imgBytes, err := base64.StdEncoding.DecodeString(*f.Data)
	if err != nil {
		sendError(conn, wire.ErrCodeInvalidFrame, "undecodable base64")
		return
	}
	if len(imgBytes) < 100 {
		sendError(conn, wire.ErrCodeInvalidFrame, "payload too small")
		return
	}
	h.processFrame(conn, sessionID, f.Ts, imgBytes)
}

// processFrame implements rate limiting, PAD, optional detection, and
// the ack/throttle response shared by both the binary and JSON frame
// paths.
func (h *Handler) processFrame(conn Conn, sessionID string, ts uint64, imgBytes []byte) {
	now := h.Clock()

	var (
		throttled bool
		signals   pad.Signals
		topBox    *detector.Box
	)

	h.Manager.WithLock(sessionID, func(s *liveness.Session) {
		if !h.Limiter.Allow(s.HasLastFrameAt, s.LastFrameAcceptedAt, now) {
			throttled = true
			s.Metrics.Throttled++
			return
		}
		s.LastFrameAcceptedAt = now
		s.HasLastFrameAt = true

		signals = h.Pad.ProcessFrame(&s.PadState, ts, imgBytes)

		if h.Detector != nil {
			boxes, err := h.Detector.Detect(imgBytes)
			if err == nil && len(boxes) > 0 {
				best := boxes[0]
				for _, b := range boxes[1:] {
					if b.Score > best.Score {
						best = b
					}
				}
				topBox = &best
				s.Telemetry.PushFaceCenter(liveness.Point{
					X: (best.X1 + best.X2) / 2,
					Y: (best.Y1 + best.Y2) / 2,
				})
			}
		}

		s.Metrics.FramesReceived++
	})

	if throttled {
		conn.WriteJSON(wire.Throttle{Type: wire.TypeThrottle, Reason: "fps-limit", MaxFPS: h.Limiter.maxFPS})
		return
	}

	ack := wire.FrameAck{
		Type: wire.TypeFrameAck,
		Ts:   ts,
		Pad: &wire.PadDebug{
			SuspectedReplay: signals.SuspectedReplay,
			DuplicateHash:   signals.DuplicateHash,
			Flicker:         signals.Flicker,
		},
	}
	if topBox != nil {
		ack.Face = &wire.FaceDebug{X1: topBox.X1, Y1: topBox.Y1, X2: topBox.X2, Y2: topBox.Y2, Score: topBox.Score}
	}
	conn.WriteJSON(ack)
}

func (h *Handler) handleTelemetry(conn Conn, sessionID string, data []byte) {
	var t wire.Telemetry
	if err := json.Unmarshal(data, &t); err != nil {
		return
	}
	if t.MotionScore == nil {
		return
	}

	var (
		prompt    *wire.PromptChallenge
		finalized bool
		passed    bool
		attemptID string
	)

	h.Manager.WithLock(sessionID, func(s *liveness.Session) {
		s.Telemetry.PushMotionScore(*t.MotionScore)
		if s.FSM.State != liveness.Prompting {
			return
		}
		if !liveness.EvaluateStreamingAdmission(&s.Telemetry, s.FSM.CurrentKind) {
			return
		}
		next := liveness.AdmitStreaming(&s.FSM, &s.Telemetry)
		attemptID = s.AttemptID
		if next == nil {
			finalized = true
			passed = s.FSM.State == liveness.Passed
			return
		}
		next.AttemptID = attemptID
		prompt = next
	})

	switch {
	case finalized:
		conn.WriteJSON(wire.Result{Type: wire.TypeResult, AttemptID: attemptID, Decision: wire.Decision{Passed: passed}})
	case prompt != nil:
		conn.WriteJSON(wire.Prompt{Type: wire.TypePrompt, Challenge: *prompt})
	}
}

func (h *Handler) handleChallengeStart(sessionID string, data []byte) {
	var msg wire.ChallengeStart
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	h.Manager.WithLock(sessionID, func(s *liveness.Session) {
		liveness.HandleChallengeStart(s, msg)
	})
}

func (h *Handler) handleChallengeFrameBatch(sessionID string, data []byte, log interface{ Warn(string, ...any) }) {
	var msg wire.ChallengeFrameBatch
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	var accepted bool
	h.Manager.WithLock(sessionID, func(s *liveness.Session) {
		accepted = liveness.HandleChallengeFrameBatch(s, msg)
	})
	if !accepted {
		log.Warn("discarded challenge frame batch for stale ids", "attemptId", msg.AttemptID, "challengeId", msg.ChallengeID)
	}
}

func (h *Handler) handleChallengeEnd(conn Conn, sessionID string, data []byte) {
	var msg wire.ChallengeEnd
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	var (
		result    wire.ChallengeResult
		ok        bool
		nextState liveness.State
		nextKind  wire.ChallengeKind
		nextID    string
		attemptID string
	)

	now := h.Clock()
	h.Manager.WithLock(sessionID, func(s *liveness.Session) {
		result, ok = liveness.HandleChallengeEnd(s, msg, now)
		if !ok {
			return
		}
		nextState = s.FSM.State
		nextKind = s.FSM.CurrentKind
		nextID = s.FSM.CurrentID
		attemptID = s.AttemptID
	})
	if !ok {
		return
	}

	conn.WriteJSON(result)

	switch nextState {
	case liveness.Prompting:
		conn.WriteJSON(wire.Prompt{Type: wire.TypePrompt, Challenge: wire.PromptChallenge{
			ID: nextID, Kind: nextKind, TimeoutMs: 5000, AttemptID: attemptID,
		}})
	case liveness.Passed:
		conn.WriteJSON(wire.Result{Type: wire.TypeResult, AttemptID: attemptID, Decision: wire.Decision{Passed: true}})
	case liveness.Failed:
		conn.WriteJSON(wire.Result{Type: wire.TypeResult, AttemptID: attemptID, Decision: wire.Decision{Passed: false}})
	}
}

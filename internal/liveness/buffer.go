package liveness

import "github.com/livenessd/server/internal/wire"

// HandleChallengeStart opens the buffered-evidence path for one
// challenge, per spec §4.4. If the incoming attempt id differs from the
// session's current one, the session adopts it and resets the FSM and
// telemetry to start a fresh attempt, dropping any prior buffer.
func HandleChallengeStart(s *Session, msg wire.ChallengeStart) {
	if msg.AttemptID != s.AttemptID {
		s.AttemptID = msg.AttemptID
		s.FSM = FSM{State: Idle}
		s.Telemetry.Reset()
		s.Buffer = nil
	} else if s.FSM.State == Passed || s.FSM.State == Failed {
		// P6: a resolved attempt stays resolved until the client begins a
		// new one with a fresh attemptId.
		return
	}

	s.Buffer = &ChallengeBuffer{
		AttemptID:       msg.AttemptID,
		ChallengeID:     msg.ChallengeID,
		ChallengeType:   msg.ChallengeType,
		StartTS:         msg.StartTime,
		ExpectedFrames:  msg.TotalFrames,
		GestureDetected: msg.GestureDetected,
	}
}

// HandleChallengeFrameBatch appends frames to the open buffer iff both
// the attempt and challenge id match (P5 attempt isolation); otherwise
// it is a no-op and the caller should log a warning.
func HandleChallengeFrameBatch(s *Session, msg wire.ChallengeFrameBatch) bool {
	if s.Buffer == nil || s.Buffer.AttemptID != msg.AttemptID || s.Buffer.ChallengeID != msg.ChallengeID {
		return false
	}

	for _, f := range msg.Frames {
		cf := ChallengeFrame{
			Timestamp:    f.Timestamp,
			FrameID:      f.FrameID,
			HasLandmarks: len(f.Landmarks) > 0,
		}
		if f.FacePresent != nil {
			cf.HasFace = true
			cf.FacePresent = *f.FacePresent
		}
		if f.MotionScore != nil {
			cf.HasMotion = true
			cf.MotionScore = *f.MotionScore
		}
		s.Buffer.Frames = append(s.Buffer.Frames, cf)
	}
	s.Buffer.ReceivedBatches++
	return true
}

// HandleChallengeEnd closes the open buffer, analyzes it, decides the
// challenge outcome, advances the FSM, and returns the result to emit.
// It returns ok=false (no mutation) if the ids don't match the open
// buffer, matching the discard-silently policy for stale ids.
func HandleChallengeEnd(s *Session, msg wire.ChallengeEnd, nowMs uint64) (wire.ChallengeResult, bool) {
	if s.Buffer == nil || s.Buffer.AttemptID != msg.AttemptID || s.Buffer.ChallengeID != msg.ChallengeID {
		return wire.ChallengeResult{}, false
	}

	buf := s.Buffer
	s.Buffer = nil

	analysis := Analyze(buf, nowMs)
	decision := Decide(analysis, buf.GestureDetected)

	AdvanceBuffered(&s.FSM, decision.Passed)

	return wire.ChallengeResult{
		Type:        wire.TypeChallengeResult,
		AttemptID:   msg.AttemptID,
		ChallengeID: msg.ChallengeID,
		Decision:    decision,
		Analysis:    analysis.ToWire(),
	}, true
}

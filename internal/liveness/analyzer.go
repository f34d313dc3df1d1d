package liveness

import "github.com/livenessd/server/internal/wire"

// Analysis is the buffered-path evidence summary computed once a
// challenge buffer closes on challenge-end.
type Analysis struct {
	TotalFrames         int
	FramesWithFace      int
	FramesWithLandmarks int
	AverageMotionScore  float64
	FaceDetectionRate   float64
	GestureConfidence   float64
	QualityScore        float64
	ProcessingTimeMs    int64
}

// Analyze computes the buffered-evidence summary for a closed buffer.
// nowMs is the caller-supplied wall-clock timestamp used only to derive
// ProcessingTimeMs, kept as a parameter so the computation stays pure.
func Analyze(buf *ChallengeBuffer, nowMs uint64) Analysis {
	var a Analysis
	a.TotalFrames = len(buf.Frames)
	if buf.StartTS <= nowMs {
		a.ProcessingTimeMs = int64(nowMs - buf.StartTS)
	}

	if a.TotalFrames == 0 {
		return a
	}

	var motionSum float64
	for _, fr := range buf.Frames {
		if fr.FacePresent {
			a.FramesWithFace++
		}
		if fr.HasLandmarks {
			a.FramesWithLandmarks++
		}
		if fr.HasMotion {
			motionSum += fr.MotionScore
		}
	}

	// Matches the source policy of dividing the motion-score sum by the
	// total frame count, not by how many frames actually reported one.
	a.AverageMotionScore = motionSum / float64(a.TotalFrames)
	a.FaceDetectionRate = float64(a.FramesWithFace) / float64(a.TotalFrames)
	a.QualityScore = 0.7*a.FaceDetectionRate + 0.3*a.AverageMotionScore

	if buf.GestureDetected {
		raw := 100 * (0.6*a.FaceDetectionRate + 0.4*a.AverageMotionScore)
		a.GestureConfidence = clamp(raw, 0, 95) / 100
	}

	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToWire converts an Analysis into its wire representation.
func (a Analysis) ToWire() wire.ChallengeAnalysis {
	return wire.ChallengeAnalysis{
		TotalFrames:         a.TotalFrames,
		FramesWithFace:      a.FramesWithFace,
		FramesWithLandmarks: a.FramesWithLandmarks,
		AverageMotionScore:  a.AverageMotionScore,
		FaceDetectionRate:   a.FaceDetectionRate,
		GestureConfidence:   a.GestureConfidence,
		QualityScore:        a.QualityScore,
		ProcessingTimeMs:    a.ProcessingTimeMs,
	}
}

// Decide applies the per-challenge pass/fail rule from spec §4.4. On
// failure, Reason names the first unmet criterion checked in order.
func Decide(a Analysis, gestureDetected bool) wire.Decision {
	if a.FaceDetectionRate < 0.7 {
		reason := "face-detection-rate"
		return wire.Decision{Passed: false, Reason: &reason}
	}
	if a.QualityScore < 0.6 {
		reason := "quality-score"
		return wire.Decision{Passed: false, Reason: &reason}
	}
	if a.TotalFrames < 10 {
		reason := "insufficient-frames"
		return wire.Decision{Passed: false, Reason: &reason}
	}
	if !gestureDetected {
		reason := "gesture-not-detected"
		return wire.Decision{Passed: false, Reason: &reason}
	}
	return wire.Decision{Passed: true}
}

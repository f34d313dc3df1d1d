package liveness

import (
	"math"
	"testing"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestAnalyzeBufferedPassScenario(t *testing.T) {
	buf := &ChallengeBuffer{GestureDetected: true, StartTS: 1000}
	for i := 0; i < 30; i++ {
		present := i < 28
		buf.Frames = append(buf.Frames, ChallengeFrame{
			FacePresent: present,
			HasFace:     true,
			HasMotion:   true,
			MotionScore: 0.08,
		})
	}

	a := Analyze(buf, 2000)

	if a.TotalFrames != 30 {
		t.Fatalf("expected 30 total frames, got %d", a.TotalFrames)
	}
	if a.FramesWithFace != 28 {
		t.Fatalf("expected 28 frames with face, got %d", a.FramesWithFace)
	}
	if !approxEqual(a.FaceDetectionRate, 0.9333, 0.001) {
		t.Fatalf("expected faceDetectionRate ~0.933, got %v", a.FaceDetectionRate)
	}
	if a.ProcessingTimeMs != 1000 {
		t.Fatalf("expected processingTimeMs=1000, got %d", a.ProcessingTimeMs)
	}

	decision := Decide(a, buf.GestureDetected)
	if !decision.Passed {
		t.Fatalf("expected pass decision, got %+v", decision)
	}
}

func TestAnalyzeAverageMotionScoreDividesByTotalNotReportingCount(t *testing.T) {
	buf := &ChallengeBuffer{
		Frames: []ChallengeFrame{
			{HasMotion: true, MotionScore: 1.0},
			{HasMotion: false},
			{HasMotion: false},
			{HasMotion: false},
		},
	}

	a := Analyze(buf, 0)

	if !approxEqual(a.AverageMotionScore, 0.25, 1e-9) {
		t.Fatalf("expected average motion score 1.0/4=0.25, got %v", a.AverageMotionScore)
	}
}

func TestDecideReasonOrderFaceDetectionRateFirst(t *testing.T) {
	a := Analysis{TotalFrames: 20, FaceDetectionRate: 0.1, QualityScore: 0.1}
	d := Decide(a, true)
	if d.Passed || d.Reason == nil || *d.Reason != "face-detection-rate" {
		t.Fatalf("expected face-detection-rate reason first, got %+v", d)
	}
}

func TestDecideReasonInsufficientFrames(t *testing.T) {
	a := Analysis{TotalFrames: 5, FaceDetectionRate: 0.9, QualityScore: 0.9}
	d := Decide(a, true)
	if d.Passed || d.Reason == nil || *d.Reason != "insufficient-frames" {
		t.Fatalf("expected insufficient-frames reason, got %+v", d)
	}
}

func TestDecideReasonGestureNotDetected(t *testing.T) {
	a := Analysis{TotalFrames: 20, FaceDetectionRate: 0.9, QualityScore: 0.9}
	d := Decide(a, false)
	if d.Passed || d.Reason == nil || *d.Reason != "gesture-not-detected" {
		t.Fatalf("expected gesture-not-detected reason, got %+v", d)
	}
}

func TestAnalyzeEmptyBufferDoesNotDivideByZero(t *testing.T) {
	buf := &ChallengeBuffer{StartTS: 0}
	a := Analyze(buf, 100)
	if a.TotalFrames != 0 || a.FaceDetectionRate != 0 || a.AverageMotionScore != 0 {
		t.Fatalf("expected all-zero analysis for empty buffer, got %+v", a)
	}
}

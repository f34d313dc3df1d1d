package wire

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeTypeDiscriminator(t *testing.T) {
	raw := []byte(`{"type":"hello","sessionId":"s1","token":"t1","client":{"sdkVersion":"1.0","platform":"ios"}}`)

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != TypeHello {
		t.Fatalf("expected hello, got %q", env.Type)
	}

	var hello Hello
	if err := json.Unmarshal(raw, &hello); err != nil {
		t.Fatalf("unmarshal hello: %v", err)
	}
	if hello.SessionID != "s1" || hello.Token != "t1" {
		t.Fatalf("unexpected hello payload: %+v", hello)
	}
}

func TestChallengeKindIsKebabCaseOnWire(t *testing.T) {
	data, err := json.Marshal(OpenMouth)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"open-mouth"` {
		t.Fatalf("expected kebab-case wire value, got %s", data)
	}
}

func TestChallengeFrameBatchRoundTrip(t *testing.T) {
	score := 0.08
	present := true
	batch := ChallengeFrameBatch{
		Type:        TypeChallengeFrameBatch,
		AttemptID:   "a1",
		ChallengeID: "c1",
		BatchIndex:  0,
		Frames: []ChallengeFrameElement{
			{Timestamp: 1, FrameID: "f1", MotionScore: &score, FacePresent: &present},
		},
	}

	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ChallengeFrameBatch
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Frames) != 1 || *decoded.Frames[0].MotionScore != score {
		t.Fatalf("round-trip mismatch: %+v", decoded)
	}
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/livenessd/server/internal/liveness"
	"github.com/livenessd/server/internal/wire"
)

type createSessionResponse struct {
	SessionID  string   `json:"sessionId"`
	Token      string   `json:"token"`
	Challenges []string `json:"challenges"`
}

// handleCreateSession creates a session and inserts it into the
// process-wide mapping with a freshly generated attemptId.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	token := uuid.NewString()
	attemptID := uuid.NewString()

	s.Manager.Create(liveness.NewSession(sessionID, token, attemptID))

	resp := createSessionResponse{
		SessionID:  sessionID,
		Token:      token,
		Challenges: challengeStrings(liveness.ActiveChallengeKinds),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type sessionView struct {
	ID        string `json:"id"`
	AttemptID string `json:"attemptId"`
	State     string `json:"state"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Metrics   struct {
		FramesReceived int     `json:"framesReceived"`
		Throttled      int     `json:"throttled"`
		P95RTTMs       *uint32 `json:"p95RttMs,omitempty"`
	} `json:"metrics"`
}

// handleGetSession returns a serialized session view, omitting PAD,
// telemetry, and challenge-buffer internals per spec §6.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.Manager.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	view := sessionView{
		ID:        sess.ID,
		AttemptID: sess.AttemptID,
		State:     sess.FSM.State.String(),
		Completed: sess.FSM.Completed,
		Failed:    sess.FSM.Failed,
	}
	view.Metrics.FramesReceived = sess.Metrics.FramesReceived
	view.Metrics.Throttled = sess.Metrics.Throttled
	view.Metrics.P95RTTMs = sess.Metrics.P95RTTMs

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

func challengeStrings(kinds []wire.ChallengeKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

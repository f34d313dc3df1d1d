package api

import (
	"encoding/json"
	"net/http"

	"github.com/livenessd/server/internal/models"
)

type capabilities struct {
	Transport []string `json:"transport"`
}

type padConfigView struct {
	ReplayWindowMs            int64   `json:"replayWindowMs"`
	AllowClockSkewMs          int64   `json:"allowClockSkewMs"`
	MaxRecentHashes           int     `json:"maxRecentHashes"`
	DuplicateHammingThreshold int     `json:"duplicateHammingThreshold"`
	FlickerSize               int     `json:"flickerSize"`
	FlickerSuspectThreshold   float64 `json:"flickerSuspectThreshold"`
}

type configResponse struct {
	ExecutionProviders []string               `json:"executionProviders"`
	Capabilities       capabilities           `json:"capabilities"`
	Models             []models.CatalogEntry  `json:"models"`
	Selected           models.SelectedCatalog `json:"selected"`
	Pad                padConfigView          `json:"pad"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	resp := configResponse{
		// No ONNX/TensorRT runtime is wired in; a real deployment would
		// report whatever execution providers its detector backend exposes.
		ExecutionProviders: []string{"cpu"},
		Capabilities:       capabilities{Transport: []string{"websocket"}},
		Models:             models.InspectDir(s.Config.ModelsDir),
		Selected:           s.Catalog,
		Pad: padConfigView{
			ReplayWindowMs:            s.Config.ReplayWindowMs,
			AllowClockSkewMs:          s.Config.AllowClockSkewMs,
			MaxRecentHashes:           s.Config.MaxRecentHashes,
			DuplicateHammingThreshold: s.Config.DuplicateHammingThreshold,
			FlickerSize:               s.Config.FlickerSize,
			FlickerSuspectThreshold:   s.Config.FlickerSuspectThreshold,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"arena-shooter/internal/game"
	"arena-shooter/internal/input"

	"go.uber.org/zap"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 4 << 10

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.engine.Snapshot()
	if !ok {
		writeError(w, "no tick has run yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Tuning())
}

func (h *routerHandlers) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs := h.engine.Runs(limit)
	if runs == nil {
		runs = []game.RunResult{}
	}
	writeJSON(w, runs)
}

func (h *routerHandlers) handleSetSpawning(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, "enabled is required", http.StatusBadRequest)
		return
	}
	h.engine.SetSpawning(*req.Enabled)
	writeJSON(w, map[string]bool{"enabled": *req.Enabled})
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	enemy, err := h.engine.SpawnEnemy()
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, game.ErrAtCapacity),
			errors.Is(err, game.ErrSpawningDisabled),
			errors.Is(err, game.ErrPaused):
			status = http.StatusConflict
		default:
			h.log.Error("manual spawn failed", zap.Error(err))
		}
		writeError(w, err.Error(), status)
		return
	}
	h.log.Info("manual spawn", zap.String("enemy", enemy.ID), zap.String("prototype", enemy.Prototype))
	writeJSON(w, enemy)
}

func (h *routerHandlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	session := h.engine.Restart()
	writeJSON(w, map[string]string{"sessionId": session})
}

func (h *routerHandlers) handlePause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused *bool `json:"paused"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Paused == nil {
		writeError(w, "paused is required", http.StatusBadRequest)
		return
	}
	h.engine.SetPaused(*req.Paused)
	writeJSON(w, map[string]bool{"paused": *req.Paused})
}

// handleInput is the polling alternative to the websocket input message.
func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var s input.Sample
	if !decodeBody(w, r, &s) {
		return
	}
	h.engine.SubmitInput(s)
	w.WriteHeader(http.StatusNoContent)
}

// Helper functions (package-level for reuse)

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"markestedt/sonarkey/combo"
	"markestedt/sonarkey/storage"
)

// combinationJSON is the wire form of a combination
type combinationJSON struct {
	Control     bool   `json:"control"`
	Shift       bool   `json:"shift"`
	Tab         bool   `json:"tab"`
	Space       bool   `json:"space"`
	SelectedKey string `json:"selectedKey"`
	Display     string `json:"display"`
	EffectMode  string `json:"effectMode,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleConfig handles GET and PUT requests for the combination
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetConfig(w, r)
	case http.MethodPut:
		s.handlePutConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetConfig returns the active combination
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	c := s.ctrl.Combination()
	writeJSON(w, http.StatusOK, combinationJSON{
		Control:     c.Control,
		Shift:       c.Shift,
		Tab:         c.Tab,
		Space:       c.Space,
		SelectedKey: c.Key.String(),
		Display:     c.String(),
		EffectMode:  s.ctrl.EffectMode(),
	})
}

// handlePutConfig updates the combination; omitted fields keep their value
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Control     *bool   `json:"control"`
		Shift       *bool   `json:"shift"`
		Tab         *bool   `json:"tab"`
		Space       *bool   `json:"space"`
		SelectedKey *string `json:"selectedKey"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c := s.ctrl.Combination()

	// Update fields if provided
	if req.Control != nil {
		c.Control = *req.Control
	}
	if req.Shift != nil {
		c.Shift = *req.Shift
	}
	if req.Tab != nil {
		c.Tab = *req.Tab
	}
	if req.Space != nil {
		c.Space = *req.Space
	}
	if req.SelectedKey != nil {
		key, err := combo.ParseKey(*req.SelectedKey)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c.Key = key
	}

	if err := s.ctrl.ApplyCombination(c); err != nil {
		slog.Error("Failed to apply combination", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	applied := s.ctrl.Combination()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "combination": applied.String()})
}

// handleCapture arms (POST) or cancels (DELETE) key capture
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if err := s.ctrl.StartCapture(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "waiting for key"})
	case http.MethodDelete:
		cancelled := s.ctrl.CancelCapture()
		writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStats returns statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	daysStr := r.URL.Query().Get("days")
	days := 7 // default to 7 days
	if daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}
	since := time.Now().AddDate(0, 0, -days)

	overall, err := s.db.GetOverallStats(since)
	if err != nil {
		slog.Error("Failed to get overall stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	daily, err := s.db.GetDailyStats(since)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	combos, err := s.db.GetComboStats(since)
	if err != nil {
		slog.Error("Failed to get combination stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"overall":      overall,
		"daily":        daily,
		"combinations": combos,
	})
}

// handleHistory handles GET and DELETE requests for transition history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		s.handleDeleteHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns paginated transition history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 50 // default
	offset := 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	transitions, err := s.db.GetTransitions(limit, offset)
	if err != nil {
		slog.Error("Failed to get transitions", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}
	if transitions == nil {
		transitions = []storage.Transition{}
	}

	total, err := s.db.GetTransitionCount()
	if err != nil {
		slog.Error("Failed to get transition count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transitions": transitions,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// handleDeleteHistory deletes a transition by ID (e.g., /api/history/123)
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if idStr == "" || idStr == r.URL.Path {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.db.DeleteTransition(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Transition not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete transition", "error", err, "id", id)
		http.Error(w, "Failed to delete transition", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleStatus returns the current agent status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

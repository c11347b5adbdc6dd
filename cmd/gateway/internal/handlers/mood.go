package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/journal"
)

// MoodHandler handles mood check-ins
type MoodHandler struct {
	store  journal.Store
	logger *zap.Logger
}

// NewMoodHandler creates a new mood handler
func NewMoodHandler(store journal.Store, logger *zap.Logger) *MoodHandler {
	return &MoodHandler{store: store, logger: logger}
}

// MoodResponse is returned by POST /api/add-mood-entry.
type MoodResponse struct {
	Message string            `json:"message"`
	Entry   journal.MoodEntry `json:"entry"`
}

// MoodListResponse is returned by GET /api/get-mood-data.
type MoodListResponse struct {
	UserID string              `json:"user_id"`
	Moods  []journal.MoodEntry `json:"moods"`
}

// AddMood handles POST /api/add-mood-entry
func (h *MoodHandler) AddMood(w http.ResponseWriter, r *http.Request) {
	var in journal.MoodInput
	if err := decodeBody(w, r, &in); err != nil {
		sendError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if err := journal.ValidateMood(in); err != nil {
		var ve *journal.ValidationError
		if errors.As(err, &ve) {
			sendError(w, ve.Error(), http.StatusBadRequest)
			return
		}
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, code, err := resolveUser(r, in.UserID)
	if err != nil {
		sendError(w, err.Error(), code)
		return
	}

	entry := in.Entry(userID)
	if err := h.store.InsertMood(r.Context(), &entry); err != nil {
		h.logger.Error("Failed to store mood entry", zap.String("user_id", userID), zap.Error(err))
		sendError(w, "Failed to save mood entry", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusCreated, MoodResponse{Message: "Mood entry added", Entry: entry})
}

// GetMoods handles GET /api/get-mood-data and GET /get-moods
func (h *MoodHandler) GetMoods(w http.ResponseWriter, r *http.Request) {
	userID, code, err := resolveUser(r, r.URL.Query().Get("user_id"))
	if err != nil {
		sendError(w, err.Error(), code)
		return
	}
	moods, err := h.store.ListMoods(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list mood entries", zap.String("user_id", userID), zap.Error(err))
		sendError(w, "Failed to load mood entries", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, MoodListResponse{UserID: userID, Moods: moods})
}

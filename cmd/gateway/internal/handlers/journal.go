package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/analysis"
	"github.com/mindsage/analyzer/internal/journal"
)

// Analyzer runs the journal analysis.
type Analyzer interface {
	Analyze(ctx context.Context, text string) analysis.Result
}

// JournalHandler handles journal and analysis requests
type JournalHandler struct {
	analyzer Analyzer
	store    journal.Store
	logger   *zap.Logger
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(analyzer Analyzer, store journal.Store, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
	}
}

// JournalRequest is the body of POST /add-journal. Both spellings of the
// user and text fields are accepted.
type JournalRequest struct {
	UserID  string  `json:"user_id"`
	ID      string  `json:"id"`
	Content *string `json:"content"`
	Text    *string `json:"text"`
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Text *string `json:"text"`
}

// JournalResponse is returned by POST /add-journal.
type JournalResponse struct {
	Message string `json:"message"`
	analysis.Result
	EntryID       string `json:"entry_id,omitempty"`
	DatabaseError string `json:"database_error,omitempty"`
}

// AddJournal handles POST /add-journal
func (h *JournalHandler) AddJournal(w http.ResponseWriter, r *http.Request) {
	var req JournalRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	content := req.Content
	if content == nil {
		content = req.Text
	}
	if content == nil || strings.TrimSpace(*content) == "" {
		sendError(w, "content is required", http.StatusBadRequest)
		return
	}

	userID, code, err := resolveUser(r, firstNonEmpty(req.UserID, req.ID))
	if err != nil {
		sendError(w, err.Error(), code)
		return
	}

	result := h.analyzer.Analyze(r.Context(), *content)
	resp := JournalResponse{Message: "Journal entry added", Result: result}

	entry := &journal.Entry{
		UserID:          userID,
		Content:         *content,
		Summary:         result.Summary,
		DominantEmotion: result.DominantEmotion,
		Intensity:       result.Intensity,
		Emotions:        journal.ScoreColumn{ScoreMap: result.Emotions},
		SuicideRisk:     result.SuicideRisk,
	}
	if err := h.store.InsertJournal(r.Context(), entry); err != nil {
		h.logger.Error("Failed to store journal entry",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		resp.Message = "Journal analyzed but could not be saved"
		resp.DatabaseError = "failed to save journal entry"
	} else {
		resp.EntryID = entry.ID.String()
	}

	if result.SuicideRisk {
		h.logger.Warn("Crisis flag raised for journal entry", zap.String("user_id", userID))
	}
	sendJSON(w, http.StatusOK, resp)
}

// Analyze handles POST /analyze. Nothing is stored.
func (h *JournalHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Text == nil {
		sendError(w, "text is required", http.StatusBadRequest)
		return
	}
	sendJSON(w, http.StatusOK, h.analyzer.Analyze(r.Context(), *req.Text))
}

// JournalListResponse is returned by GET /get-journals/{user_id}.
type JournalListResponse struct {
	UserID   string          `json:"user_id"`
	Journals []journal.Entry `json:"journals"`
}

// GetJournals handles GET /get-journals/{user_id}
func (h *JournalHandler) GetJournals(w http.ResponseWriter, r *http.Request) {
	userID, code, err := resolveUser(r, r.PathValue("user_id"))
	if err != nil {
		sendError(w, err.Error(), code)
		return
	}
	entries, err := h.store.ListJournals(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list journal entries", zap.String("user_id", userID), zap.Error(err))
		sendError(w, "Failed to load journal entries", http.StatusInternalServerError)
		return
	}
	sendJSON(w, http.StatusOK, JournalListResponse{UserID: userID, Journals: entries})
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"candor-backend/internal/coach"
	"candor-backend/internal/middleware"
	"candor-backend/internal/models"
	"candor-backend/internal/notify"
	"candor-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type ConversationHandler struct {
	requestRepo *repository.RequestRepo
	coach       *coach.Coach
	notifier    notify.Notifier
}

func NewConversationHandler(requestRepo *repository.RequestRepo, c *coach.Coach, notifier notify.Notifier) *ConversationHandler {
	return &ConversationHandler{
		requestRepo: requestRepo,
		coach:       c,
		notifier:    notifier,
	}
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

// --- POST /api/conversations ---
// Starts a coaching conversation and creates the draft request bound to it.

func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	session, turn, err := h.coach.Start(r.Context())
	if err != nil {
		h.reportFailure("starting conversation", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to process your request, please try again"})
		return
	}

	draft := models.NewDraft(userID, session)
	if err := h.requestRepo.Create(r.Context(), draft); err != nil {
		log.Printf("Error creating draft request: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"request_id": draft.ID.Hex(),
		"message":    turn.Message,
	})
}

// --- POST /api/conversations/{id}/messages ---

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	req, ok := h.loadOwnedDraft(w, r, userID)
	if !ok {
		return
	}

	var body SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	turn, err := h.coach.Send(r.Context(), req.ThreadID, body.Message)
	if err != nil {
		h.reportFailure(fmt.Sprintf("conversation %s", req.ID.Hex()), err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to process your message, please try again"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  turn.Message,
		"complete": turn.Complete,
	})
}

// --- POST /api/conversations/{id}/finish ---
// Asks the coach for the structured summary and persists it as the draft's
// feedback prompt.

func (h *ConversationHandler) Finish(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	req, ok := h.loadOwnedDraft(w, r, userID)
	if !ok {
		return
	}

	summary, err := h.coach.Summarize(r.Context(), req.ThreadID)
	if err != nil {
		h.reportFailure(fmt.Sprintf("summarizing conversation %s", req.ID.Hex()), err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to process your request, please try again"})
		return
	}

	if err := h.requestRepo.SetPrompt(r.Context(), req.ID, summary); err != nil {
		log.Printf("Error saving feedback prompt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id":      req.ID.Hex(),
		"feedback_prompt": summary,
	})
}

// loadOwnedDraft fetches the request and enforces ownership and the
// draft-with-conversation invariant. Non-owners get the same 404 as a
// missing record.
func (h *ConversationHandler) loadOwnedDraft(w http.ResponseWriter, r *http.Request, userID bson.ObjectID) (*models.FeedbackRequest, bool) {
	id, err := bson.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request ID"})
		return nil, false
	}

	req, err := h.requestRepo.FindByID(r.Context(), id)
	if err != nil {
		log.Printf("Error finding request: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, false
	}
	// Non-owners get the same 404 as a missing record so they cannot probe
	// for existence.
	if req == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
		return nil, false
	}
	if err := req.Authorize(userID); err != nil {
		log.Printf("Rejected access to request %s: %v", req.ID.Hex(), err)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "request not found"})
		return nil, false
	}
	if req.Status != models.StatusDraft || req.ThreadID == "" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "request is no longer in authoring state"})
		return nil, false
	}
	return req, true
}

func (h *ConversationHandler) reportFailure(what string, err error) {
	log.Printf("Error %s: %v", what, err)
	// Fire the operator alert in a background goroutine (non-blocking)
	go func() {
		message := fmt.Sprintf("Coach failure while %s: %v", what, err)
		if pubErr := h.notifier.Publish(context.Background(), message); pubErr != nil {
			log.Printf("Error publishing operator alert: %v", pubErr)
		}
	}()
}

// actingUserID pulls the authenticated user's id out of the context.
func actingUserID(w http.ResponseWriter, r *http.Request) (bson.ObjectID, bool) {
	userIDHex := middleware.GetUserID(r.Context())
	if userIDHex == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return bson.ObjectID{}, false
	}
	userID, err := bson.ObjectIDFromHex(userIDHex)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return bson.ObjectID{}, false
	}
	return userID, true
}

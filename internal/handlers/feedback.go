package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"candor-backend/internal/dispatch"
	"candor-backend/internal/mailer"
	"candor-backend/internal/models"
	"candor-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type FeedbackHandler struct {
	requestRepo *repository.RequestRepo
	userRepo    *repository.UserRepo
	dispatcher  *dispatch.Service
	mailer      mailer.Mailer
	baseURL     string
}

func NewFeedbackHandler(requestRepo *repository.RequestRepo, userRepo *repository.UserRepo, dispatcher *dispatch.Service, m mailer.Mailer, baseURL string) *FeedbackHandler {
	return &FeedbackHandler{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		mailer:      m,
		baseURL:     baseURL,
	}
}

type DispatchRequest struct {
	Recipients      []string `json:"recipients"`
	PersonalMessage string   `json:"personal_message"`
}

type DirectSendRequest struct {
	RecipientName   string `json:"recipient_name"`
	RecipientEmail  string `json:"recipient_email"`
	PersonalMessage string `json:"personal_message"`
}

type SubmitFeedbackRequest struct {
	FeedbackText string `json:"feedback_text"`
}

// --- POST /api/requests/{id}/dispatch ---
// Fans the draft's prompt out to every distinct recipient address.

func (h *FeedbackHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	req, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}

	var body DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Invalid request format"})
		return
	}

	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		log.Printf("Error loading requestor %s: %v", userID.Hex(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	result, err := h.dispatcher.Send(r.Context(), req, body.Recipients, body.PersonalMessage, user.FullName())
	if err != nil {
		var validation *dispatch.ValidationError
		switch {
		case errors.As(err, &validation):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": validation.Reason})
		case errors.Is(err, models.ErrPromptMissing), errors.Is(err, models.ErrBadTransition):
			writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "message": "request has no finalized feedback prompt"})
		default:
			log.Printf("Error dispatching request %s: %v", req.ID.Hex(), err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	if result.AllFailed() {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": "all deliveries failed",
			"result":  result,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Successfully sent %d of %d feedback requests", result.Succeeded, result.Total),
		"result":  result,
	})
}

// --- POST /api/requests/{id}/send ---
// Dispatches the draft itself to a single named recipient (30-day expiry),
// without cloning.

func (h *FeedbackHandler) SendDirect(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	req, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}

	var body DirectSendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !dispatch.ValidEmail(body.RecipientEmail) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid email format: %s", body.RecipientEmail)})
		return
	}
	if len(body.PersonalMessage) > dispatch.MaxPersonalMessage {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("personal message too long (max %d characters)", dispatch.MaxPersonalMessage)})
		return
	}

	req.PersonalMessage = body.PersonalMessage
	err := req.MarkDispatched(body.RecipientName, body.RecipientEmail, uuid.New().String(), models.DirectSendTTL, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPromptMissing):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "request has no finalized feedback prompt"})
		case errors.Is(err, models.ErrBadTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "request was already dispatched"})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return
	}

	if err := h.requestRepo.SaveTransition(r.Context(), req); err != nil {
		log.Printf("Error saving dispatched request %s: %v", req.ID.Hex(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		log.Printf("Error loading requestor %s: %v", userID.Hex(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	fields := mailer.MergeFields{
		RequestorName:   user.FullName(),
		FeedbackURL:     h.baseURL + "/f/" + req.UniqueLink,
		PersonalMessage: body.PersonalMessage,
	}
	if _, err := h.mailer.Deliver(r.Context(), req.RecipientEmail, fields); err != nil {
		// The request is durably pending; delivery can be retried from the UI.
		log.Printf("Error delivering request %s: %v", req.ID.Hex(), err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "request saved, but email delivery failed",
			"request": requestView(req),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "feedback request sent",
		"request": requestView(req),
	})
}

// --- GET /api/requests ---

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	reqs, err := h.requestRepo.ListByRequestor(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing requests: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, requestView(req))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": views})
}

// --- GET /api/requests/{id} ---

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	req, ok := h.loadOwned(w, r, userID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, requestView(req))
}

// --- GET /f/{link} ---
// The recipient's view of a pending request. No authentication: the
// unguessable link is the credential.

func (h *FeedbackHandler) PublicView(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadByLink(w, r)
	if !ok {
		return
	}

	status := req.EffectiveStatus(time.Now())
	if status == models.StatusExpired {
		writeJSON(w, http.StatusGone, map[string]string{"error": "this feedback request has expired"})
		return
	}

	requestor, err := h.userRepo.FindByID(r.Context(), req.RequestorID)
	if err != nil {
		log.Printf("Error loading requestor for link: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	requestorName := ""
	if requestor != nil {
		requestorName = requestor.FullName()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requestor_name":   requestorName,
		"recipient_name":   req.RecipientName,
		"feedback_prompt":  req.FeedbackPrompt,
		"personal_message": req.PersonalMessage,
		"status":           status,
		"expires_at":       req.ExpiresAt,
	})
}

// --- POST /f/{link} ---
// Recipient submits their written feedback, completing the request.

func (h *FeedbackHandler) PublicSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadByLink(w, r)
	if !ok {
		return
	}

	var body SubmitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.FeedbackText == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "feedback text is required"})
		return
	}

	if err := req.MarkCompleted(body.FeedbackText, time.Now()); err != nil {
		switch {
		case errors.Is(err, models.ErrRequestExpired):
			writeJSON(w, http.StatusGone, map[string]string{"error": "this feedback request has expired"})
		default:
			writeJSON(w, http.StatusConflict, map[string]string{"error": "feedback was already submitted"})
		}
		return
	}

	if err := h.requestRepo.SaveTransition(r.Context(), req); err != nil {
		log.Printf("Error saving completed request %s: %v", req.ID.Hex(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "thank you, your feedback was submitted"})
}

// --- Helpers ---

func (h *FeedbackHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID bson.ObjectID) (*models.FeedbackRequest, bool) {
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
	return req, true
}

func (h *FeedbackHandler) loadByLink(w http.ResponseWriter, r *http.Request) (*models.FeedbackRequest, bool) {
	link := chi.URLParam(r, "link")
	if link == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing link"})
		return nil, false
	}

	req, err := h.requestRepo.FindByUniqueLink(r.Context(), link)
	if err != nil {
		log.Printf("Error finding request by link: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, false
	}
	if req == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "feedback request not found"})
		return nil, false
	}
	return req, true
}

// requestView serializes a request with its lazily evaluated status. The
// stored record is never written just to flip an expired flag.
func requestView(req *models.FeedbackRequest) map[string]interface{} {
	return map[string]interface{}{
		"id":               req.ID.Hex(),
		"recipient_name":   req.RecipientName,
		"recipient_email":  req.RecipientEmail,
		"status":           req.EffectiveStatus(time.Now()),
		"feedback_prompt":  req.FeedbackPrompt,
		"personal_message": req.PersonalMessage,
		"feedback_text":    req.FeedbackText,
		"created_at":       req.CreatedAt,
		"expires_at":       req.ExpiresAt,
		"submitted_at":     req.SubmittedAt,
	}
}

package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"candor-backend/internal/models"
	"candor-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type TemplateHandler struct {
	templateRepo *repository.TemplateRepo
}

func NewTemplateHandler(templateRepo *repository.TemplateRepo) *TemplateHandler {
	return &TemplateHandler{
		templateRepo: templateRepo,
	}
}

type CreateTemplateRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// --- POST /api/templates ---

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	tmpl := &models.FeedbackTemplate{
		OwnerID: userID,
		Name:    req.Name,
		Prompt:  req.Prompt,
	}
	if err := h.templateRepo.Create(r.Context(), tmpl); err != nil {
		log.Printf("Error creating template: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save template"})
		return
	}

	writeJSON(w, http.StatusCreated, tmpl)
}

// --- GET /api/templates ---

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	tmpls, err := h.templateRepo.ListByOwner(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing templates: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if tmpls == nil {
		tmpls = []*models.FeedbackTemplate{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": tmpls})
}

// --- GET /api/templates/{id} ---

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUserID(w, r)
	if !ok {
		return
	}

	id, err := bson.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}

	tmpl, err := h.templateRepo.FindByID(r.Context(), id)
	if err != nil {
		log.Printf("Error finding template: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if tmpl == nil || tmpl.OwnerID != userID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}

	writeJSON(w, http.StatusOK, tmpl)
}

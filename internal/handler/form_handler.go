package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/formlogic"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

type FormHandler struct {
	svc *service.FormService
}

func NewFormHandler(svc *service.FormService) *FormHandler {
	return &FormHandler{svc: svc}
}

func (h *FormHandler) Bases(w http.ResponseWriter, r *http.Request) {
	bases, err := h.svc.Bases(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch bases")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bases": bases})
}

func (h *FormHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.Tables(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "baseId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch tables")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (h *FormHandler) Fields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.svc.Fields(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "baseId"), chi.URLParam(r, "tableId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch fields")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.List(r.Context(), auth.GetUser(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch forms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": forms})
}

func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.FormInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	form, err := h.svc.Create(r.Context(), auth.GetUser(r.Context()).UserID, req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create form")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"form": form})
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.svc.Get(r.Context(), chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch form")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"form": form})
}

func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.FormUpdate
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	form, err := h.svc.Update(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "formId"), req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update form")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"form": form})
}

func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "formId")); err != nil {
		writeServiceError(w, r, err, "Failed to delete form")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Form deleted successfully"})
}

// Visibility reports which questions a renderer should show for the
// answers given so far.
func (h *FormHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers formlogic.Answers `json:"answers"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	keys, err := h.svc.Visibility(r.Context(), chi.URLParam(r, "formId"), req.Answers)
	if err != nil {
		writeServiceError(w, r, err, "Failed to evaluate form")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visibleQuestions": keys})
}

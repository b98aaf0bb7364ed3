package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/formlogic"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

type ResponseHandler struct {
	svc *service.ResponseService
}

func NewResponseHandler(svc *service.ResponseService) *ResponseHandler {
	return &ResponseHandler{svc: svc}
}

func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers formlogic.Answers `json:"answers"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Submit(r.Context(), chi.URLParam(r, "formId"), req.Answers)
	if err != nil {
		writeServiceError(w, r, err, "Failed to submit response")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	responses, err := h.svc.List(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "formId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch responses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": responses})
}

func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Get(r.Context(), auth.GetUser(r.Context()).UserID, chi.URLParam(r, "formId"), chi.URLParam(r, "responseId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch response")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": resp})
}

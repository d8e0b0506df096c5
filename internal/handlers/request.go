package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/volunteer-hub/apiserver/internal/services"
	"github.com/volunteer-hub/apiserver/types"
	"go.uber.org/zap"
)

// RequestHandler provides HTTP handlers for help requests.
type RequestHandler struct {
	requestService *services.RequestService
	logger         *zap.Logger
}

func NewRequestHandler(requestService *services.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{requestService: requestService, logger: logger}
}

// RequestRouter registers request routes on the given router. Submitting a
// request is public; everything else needs a principal.
func RequestRouter(
	r chi.Router,
	requestService *services.RequestService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewRequestHandler(requestService, logger)

	r.Post("/", handler.CreateRequest)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.ListRequests)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.GetRequest)
			r.Delete("/", handler.DeleteRequest)
			r.Put("/assign", handler.Assign)
			r.Put("/status", handler.SetStatus)
			r.Post("/notes", handler.AddNote)
		})
	})
}

type AssignRequest struct {
	VolunteerID *int `json:"volunteerId"`
}

type StatusRequest struct {
	Status types.Status `json:"status"`
}

type NoteRequest struct {
	Text string `json:"text"`
}

type RequestResponse struct {
	Request types.RequestView `json:"request"`
}

type RequestDetailResponse struct {
	Request types.RequestDetail `json:"request"`
}

type NoteResponse struct {
	Note types.NoteView `json:"note"`
}

// CreateRequest accepts a public help request submission.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req services.CreateRequestInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	created, err := h.requestService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, RequestResponse{Request: created})
}

// ListRequests returns the requests visible to the caller.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	query := r.URL.Query()
	requests, err := h.requestService.List(r.Context(), principal, services.ListParams{
		Status:   query.Get("status"),
		Category: query.Get("category"),
		Priority: query.Get("priority"),
		Assigned: query.Get("assigned"),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

// GetRequest returns one request with its notes.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.target(w, r)
	if !ok {
		return
	}

	detail, err := h.requestService.Get(r.Context(), principal, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RequestDetailResponse{Request: detail})
}

// Assign puts a volunteer on the request. An empty body claims it for the
// caller.
func (h *RequestHandler) Assign(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req AssignRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	updated, err := h.requestService.Assign(r.Context(), principal, id, req.VolunteerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RequestResponse{Request: updated})
}

// SetStatus moves the request to a new status.
func (h *RequestHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	updated, err := h.requestService.SetStatus(r.Context(), principal, id, req.Status)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RequestResponse{Request: updated})
}

// AddNote appends a note to the request.
func (h *RequestHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	note, err := h.requestService.AddNote(r.Context(), principal, id, req.Text)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, NoteResponse{Note: note})
}

// DeleteRequest removes the request and its notes.
func (h *RequestHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	principal, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.requestService.Delete(r.Context(), principal, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "request deleted"})
}

func (h *RequestHandler) target(w http.ResponseWriter, r *http.Request) (types.Principal, int, bool) {
	principal, err := principalFromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return types.Principal{}, 0, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return types.Principal{}, 0, false
	}
	return principal, id, true
}

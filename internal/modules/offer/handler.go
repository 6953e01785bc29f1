package offer

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Handler exposes offer approval commands and read queries.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts the offer endpoints. The caller decides which
// middleware (auth) wraps the group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/offers", func(r chi.Router) {
		r.Get("/", h.list)                     // GET  /api/v1/offers?status=PENDING | ?group=open|closed
		r.Get("/{id}", h.get)                  // GET  /api/v1/offers/{id}
		r.Post("/{id}/approve", h.approve)     // POST /api/v1/offers/{id}/approve
		r.Post("/{id}/reject", h.reject)       // POST /api/v1/offers/{id}/reject
		r.Post("/{id}/schedule", h.schedule)   // POST /api/v1/offers/{id}/schedule
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context(), r.URL.Query().Get("status"), r.URL.Query().Get("group"))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, views)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, v)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means approve without tags
	}
	o, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	o, err := h.service.Schedule(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, o)
}

func statusFor(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "cannot transition"):
		return http.StatusUnprocessableEntity
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "required"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

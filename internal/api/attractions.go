package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-attractions/internal/models"
	"ms-attractions/internal/sse"
)

func (h *Handler) ListAttractions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Attractions.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Attractions retrieved", list)
}

func (h *Handler) GetAttraction(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Attractions.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Attraction retrieved", detail)
}

func (h *Handler) CreateAttraction(w http.ResponseWriter, r *http.Request) {
	var req models.AttractionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.Attractions.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Attraction created", a)
}

func (h *Handler) UpdateAttraction(w http.ResponseWriter, r *http.Request) {
	var req models.AttractionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.Attractions.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Attraction updated", a)
}

func (h *Handler) DeleteAttraction(w http.ResponseWriter, r *http.Request) {
	if err := h.Attractions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamAvailability pushes ticket day changes of one attraction as server-sent events.
func (h *Handler) StreamAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Attractions.Get(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	// Subscribe before the snapshot so no change between the two is lost.
	events := h.Availability.Subscribe(r.Context(), id)

	days, err := h.Inventory.ListTicketDays(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snapshot := make([]models.TicketDayView, len(days))
	for i, d := range days {
		snapshot[i] = d.View()
	}

	h.Logger.Info("SSE", "Availability stream opened for "+id)
	if err := sse.Stream(w, r, snapshot, events, h.Heartbeat); err != nil {
		h.Logger.Warn("SSE", "Availability stream for "+id+" ended: "+err.Error())
		return
	}
	h.Logger.Info("SSE", "Availability stream closed for "+id)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-attractions/internal/models"
)

func (h *Handler) OpenTicketDay(w http.ResponseWriter, r *http.Request) {
	var req models.OpenTicketDayRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.Inventory.OpenTicketDay(r.Context(), chi.URLParam(r, "id"), req.Date, req.TotalTickets)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Ticket day opened", day.View())
}

func (h *Handler) IncreaseCapacity(w http.ResponseWriter, r *http.Request) {
	var req models.IncreaseCapacityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.Inventory.IncreaseCapacity(r.Context(), chi.URLParam(r, "id"), req.Date, req.NewTickets)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Ticket capacity increased", day.View())
}

func (h *Handler) CloseTicketDay(w http.ResponseWriter, r *http.Request) {
	var req models.DateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Inventory.CloseTicketDay(r.Context(), chi.URLParam(r, "id"), req.Date); err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Ticket day closed", nil)
}

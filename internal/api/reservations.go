package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-attractions/internal/models"
)

type verifyPassRequest struct {
	Code string `json:"code"`
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req models.DateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Reservations.Reserve(r.Context(), chi.URLParam(r, "id"), req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Reservation created", res)
}

// CancelReservation cancels the caller's ACTIVE reservation for the attraction on the given date.
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	var req models.DateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Reservations.CancelMine(r.Context(), chi.URLParam(r, "attractionId"), req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Reservation cancelled", res)
}

// ListReservations returns ACTIVE reservations, or the full history with ?status=all.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reservations.ListMine(r.Context(), r.URL.Query().Get("status") == "all")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Reservations retrieved", list)
}

func (h *Handler) ReservationPass(w http.ResponseWriter, r *http.Request) {
	img, err := h.Reservations.PassImage(r.Context(), chi.URLParam(r, "reservationId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (h *Handler) VerifyPass(w http.ResponseWriter, r *http.Request) {
	var req verifyPassRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.Reservations.VerifyPass(r.Context(), req.Code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Pass checked", result)
}

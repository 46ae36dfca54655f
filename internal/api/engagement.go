package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-attractions/internal/auth"
	"ms-attractions/internal/models"
)

type engagementOp func(ctx context.Context, attractionID, userID string) (*models.EngagementResult, error)

// engage runs op for the authenticated caller on the {id} attraction.
func (h *Handler) engage(op engagementOp, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.Require(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		result, err := op(r.Context(), chi.URLParam(r, "id"), id.UserID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond(w, http.StatusOK, message, result)
	}
}

func (h *Handler) setLiked(v bool) engagementOp {
	return func(ctx context.Context, attractionID, userID string) (*models.EngagementResult, error) {
		return h.Engagement.SetLiked(ctx, attractionID, userID, v)
	}
}

func (h *Handler) setFavorited(v bool) engagementOp {
	return func(ctx context.Context, attractionID, userID string) (*models.EngagementResult, error) {
		return h.Engagement.SetFavorited(ctx, attractionID, userID, v)
	}
}

func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := auth.Require(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	agg, err := h.Engagement.RecordShare(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Share recorded", agg)
}

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	id, err := auth.Require(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.Attractions.Favorites(r.Context(), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Favorites retrieved", list)
}

// EngagementState reports whether the caller liked or favorited the attraction.
func (h *Handler) EngagementState(w http.ResponseWriter, r *http.Request) {
	id, err := auth.Require(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	state, err := h.Engagement.GetUserState(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Engagement state retrieved", state)
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ms-attractions/internal/auth"
	"ms-attractions/internal/logger"
)

// RequestLogger logs method, path, status and latency of every request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start).String())
		})
	}
}

// NewRouter mounts the public, authenticated and admin routes.
// Browsing attractions needs no token; everything else goes through gw.
func NewRouter(h *Handler, gw auth.Gateway, adminRole string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, "ok", nil)
	})

	r.Get("/attractions", h.ListAttractions)
	r.Get("/attractions/{id}", h.GetAttraction)
	r.Get("/attractions/{id}/tickets/stream", h.StreamAvailability)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(gw, h.Logger))

		r.Post("/attractions/{id}/reservations", h.Reserve)
		r.Put("/attractions/{id}/like", h.engage(h.setLiked(true), "Attraction liked"))
		r.Put("/attractions/{id}/unlike", h.engage(h.setLiked(false), "Attraction unliked"))
		r.Put("/attractions/{id}/like/toggle", h.engage(h.Engagement.ToggleLike, "Like toggled"))
		r.Put("/attractions/{id}/favorite", h.engage(h.setFavorited(true), "Attraction favorited"))
		r.Put("/attractions/{id}/unfavorite", h.engage(h.setFavorited(false), "Attraction unfavorited"))
		r.Put("/attractions/{id}/favorite/toggle", h.engage(h.Engagement.ToggleFavorite, "Favorite toggled"))
		r.Put("/attractions/{id}/share", h.Share)

		r.Route("/users", func(r chi.Router) {
			r.Get("/reservations", h.ListReservations)
			r.Put("/reservations/{attractionId}/remove", h.CancelReservation)
			r.Get("/reservations/{reservationId}/pass", h.ReservationPass)
			r.Get("/favorites", h.ListFavorites)
			r.Get("/favorites/{id}", h.EngagementState)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(adminRole, h.Logger))

			r.Post("/attractions", h.CreateAttraction)
			r.Put("/attractions/{id}", h.UpdateAttraction)
			r.Delete("/attractions/{id}", h.DeleteAttraction)
			r.Post("/attractions/{id}/tickets", h.OpenTicketDay)
			r.Put("/attractions/{id}/tickets", h.IncreaseCapacity)
			r.Put("/attractions/{id}/tickets/delete", h.CloseTicketDay)
			r.Post("/admin/reservations/verify", h.VerifyPass)
		})
	})

	h.Logger.Info("ROUTER", "Public, user and admin routes registered")
	return r
}

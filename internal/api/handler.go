package api

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/attractions"
	"ms-attractions/internal/engagement"
	"ms-attractions/internal/ledger"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/reservations"
	"ms-attractions/internal/sse"
	"ms-attractions/internal/utils"
)

var errInvalidBody = apperr.New(apperr.KindValidation, "invalid_body", "request body is not valid JSON")

// Handler serves the attractions HTTP surface.
type Handler struct {
	Attractions  *attractions.Service
	Inventory    *ledger.Ledger
	Reservations *reservations.ReservationService
	Engagement   *engagement.Store
	Availability *sse.AvailabilityEmitter
	Logger       *logger.Logger
	Heartbeat    time.Duration
}

func NewHandler(
	attractionService *attractions.Service,
	inventory *ledger.Ledger,
	reservationService *reservations.ReservationService,
	engagementStore *engagement.Store,
	availability *sse.AvailabilityEmitter,
	log *logger.Logger,
) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Attractions:  attractionService,
		Inventory:    inventory,
		Reservations: reservationService,
		Engagement:   engagementStore,
		Availability: availability,
		Logger:       log,
		Heartbeat:    30 * time.Second,
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errInvalidBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

func respond(w http.ResponseWriter, status int, message string, data interface{}) {
	utils.WriteJSON(w, status, utils.SuccessResponse(message, data))
}

// fail writes err and logs it when it is not a client mistake.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.Logger.Error("API", r.Method+" "+r.URL.Path+": "+err.Error())
	}
	utils.WriteError(w, err)
}

package ledger

import "ms-attractions/internal/apperr"

var (
	ErrInvalidAttractionID = apperr.New(apperr.KindValidation, "invalid_attraction_id", "attraction id is required")
	ErrInvalidUserID       = apperr.New(apperr.KindValidation, "invalid_user_id", "user id is required")
	ErrInvalidDate         = apperr.New(apperr.KindValidation, "invalid_date", "date must be formatted as YYYY-MM-DD")
	ErrInvalidCapacity     = apperr.New(apperr.KindValidation, "invalid_capacity", "total tickets must be a positive integer")
	ErrInvalidDelta        = apperr.New(apperr.KindValidation, "invalid_delta", "new tickets must be a positive integer")

	ErrAttractionNotFound  = apperr.New(apperr.KindNotFound, "attraction_not_found", "attraction not found")
	ErrTicketDayNotFound   = apperr.New(apperr.KindNotFound, "ticket_day_not_found", "no tickets exist for this attraction and date")
	ErrReservationNotFound = apperr.New(apperr.KindNotFound, "reservation_not_found", "reservation not found")

	ErrAlreadyExists        = apperr.New(apperr.KindConflict, "ticket_day_exists", "tickets for this date already exist")
	ErrDuplicateReservation = apperr.New(apperr.KindConflict, "duplicate_reservation", "you already hold a reservation for this date")
	ErrSoldOut              = apperr.New(apperr.KindConflict, "sold_out", "tickets for this date are sold out")
	ErrAlreadyCancelled     = apperr.New(apperr.KindConflict, "already_cancelled", "reservation is already cancelled")
	ErrActiveReservations   = apperr.New(apperr.KindConflict, "active_reservations", "ticket day still has active reservations")

	ErrBusy = apperr.New(apperr.KindInternal, "lock_unavailable", "ticket day is busy, try again")
)

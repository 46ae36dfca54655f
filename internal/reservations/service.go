package reservations

import (
	"context"
	"fmt"
	"time"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/auth"
	"ms-attractions/internal/ledger"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
	"ms-attractions/internal/reservations/pass"
)

var (
	ErrPastDate     = apperr.New(apperr.KindValidation, "date_in_past", "reservations cannot be made for past dates")
	ErrPassDisabled = apperr.New(apperr.KindInternal, "pass_disabled", "reservation passes are not configured")
)

type Ledger interface {
	Reserve(ctx context.Context, attractionID, date, userID string) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID string) (*models.Reservation, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	FindActiveReservation(ctx context.Context, userID, attractionID, date string) (*models.Reservation, error)
	ListUserReservations(ctx context.Context, userID string, activeOnly bool) ([]models.Reservation, error)
}

// Catalog resolves attraction names and images for reservation lists.
type Catalog interface {
	GetAttractions(ctx context.Context, ids []string) (map[string]models.Attraction, error)
}

type PassCodec interface {
	QR(r models.Reservation, issuedAt time.Time) ([]byte, error)
	Decode(code string) (pass.Payload, error)
}

// PassVerification is the result of checking a scanned pass.
type PassVerification struct {
	Valid       bool                `json:"valid"`
	Reason      string              `json:"reason,omitempty"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
}

type ReservationService struct {
	Ledger   Ledger
	Catalog  Catalog
	Passes   PassCodec
	Logger   *logger.Logger
	Location *time.Location
	Now      func() time.Time
}

func NewReservationService(l Ledger, catalog Catalog, passes PassCodec, log *logger.Logger, loc *time.Location) *ReservationService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReservationService{Ledger: l, Catalog: catalog, Passes: passes, Logger: log, Location: loc, Now: time.Now}
}

// ValidateOpenDate rejects malformed dates and dates before today in the service timezone.
func (s *ReservationService) ValidateOpenDate(date string) error {
	if err := ledger.ValidateDate(date); err != nil {
		return err
	}
	today := s.Now().In(s.Location).Format(models.DateLayout)
	if date < today {
		return ErrPastDate
	}
	return nil
}

// Reserve books one ticket for the authenticated caller.
func (s *ReservationService) Reserve(ctx context.Context, attractionID, date string) (*models.Reservation, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateOpenDate(date); err != nil {
		return nil, err
	}

	r, err := s.Ledger.Reserve(ctx, attractionID, date, id.UserID)
	if err != nil {
		s.Logger.Warn("RESERVATION", fmt.Sprintf("Reserve %s/%s by %s failed: %v", attractionID, date, id.UserID, err))
		return nil, err
	}
	return r, nil
}

// CancelReservation cancels one of the caller's reservations by id.
// Reservations of other users are reported as not found.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.Ledger.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != id.UserID {
		return nil, ledger.ErrReservationNotFound
	}
	return s.Ledger.Cancel(ctx, reservationID)
}

// CancelByUserAndDate resolves the user's ACTIVE reservation for the day and cancels it.
func (s *ReservationService) CancelByUserAndDate(ctx context.Context, userID, attractionID, date string) (*models.Reservation, error) {
	r, err := s.Ledger.FindActiveReservation(ctx, userID, attractionID, date)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.Ledger.Cancel(ctx, r.ID)
	if err != nil {
		s.Logger.Warn("RESERVATION", fmt.Sprintf("Cancel %s/%s by %s failed: %v", attractionID, date, userID, err))
		return nil, err
	}
	return cancelled, nil
}

func (s *ReservationService) CancelMine(ctx context.Context, attractionID, date string) (*models.Reservation, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.CancelByUserAndDate(ctx, id.UserID, attractionID, date)
}

// ListUserReservations returns the user's reservations with attraction name and image.
// Only ACTIVE ones are returned unless includeCancelled is set.
func (s *ReservationService) ListUserReservations(ctx context.Context, userID string, includeCancelled bool) ([]models.ReservationView, error) {
	list, err := s.Ledger.ListUserReservations(ctx, userID, !includeCancelled)
	if err != nil {
		return nil, err
	}

	views := make([]models.ReservationView, 0, len(list))
	if len(list) == 0 {
		return views, nil
	}

	ids := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, r := range list {
		if !seen[r.AttractionID] {
			seen[r.AttractionID] = true
			ids = append(ids, r.AttractionID)
		}
	}

	attractions := map[string]models.Attraction{}
	if s.Catalog != nil {
		attractions, err = s.Catalog.GetAttractions(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	for _, r := range list {
		v := models.ReservationView{Reservation: r}
		if a, ok := attractions[r.AttractionID]; ok {
			v.AttractionName = a.Name
			v.AttractionImageURL = a.ImageURL
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *ReservationService) ListMine(ctx context.Context, includeCancelled bool) ([]models.ReservationView, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListUserReservations(ctx, id.UserID, includeCancelled)
}

// PassImage renders the QR pass for one of the caller's ACTIVE reservations.
func (s *ReservationService) PassImage(ctx context.Context, reservationID string) ([]byte, error) {
	if s.Passes == nil {
		return nil, ErrPassDisabled
	}
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.Ledger.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != id.UserID {
		return nil, ledger.ErrReservationNotFound
	}
	if !r.IsActive() {
		return nil, ledger.ErrAlreadyCancelled
	}

	img, err := s.Passes.QR(*r, s.Now())
	if err != nil {
		return nil, apperr.Internal("failed to render pass", err)
	}
	s.Logger.LogReservation("PASS", r.ID, "pass issued")
	return img, nil
}

// VerifyPass decodes a scanned code and reports whether its reservation is still ACTIVE.
func (s *ReservationService) VerifyPass(ctx context.Context, code string) (*PassVerification, error) {
	if s.Passes == nil {
		return nil, ErrPassDisabled
	}
	payload, err := s.Passes.Decode(code)
	if err != nil {
		return nil, err
	}

	r, err := s.Ledger.GetReservation(ctx, payload.ReservationID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return &PassVerification{Valid: false, Reason: "reservation no longer exists"}, nil
	}
	if err != nil {
		return nil, err
	}

	switch {
	case r.UserID != payload.UserID || r.AttractionID != payload.AttractionID || r.Date != payload.Date:
		return &PassVerification{Valid: false, Reason: "pass does not match reservation"}, nil
	case !r.IsActive():
		return &PassVerification{Valid: false, Reason: "reservation is cancelled", Reservation: r}, nil
	}

	s.Logger.LogReservation("VERIFY", r.ID, fmt.Sprintf("valid pass for %s/%s", r.AttractionID, r.Date))
	return &PassVerification{Valid: true, Reservation: r}, nil
}

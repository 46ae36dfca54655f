package reservations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/auth"
	"ms-attractions/internal/ledger"
	"ms-attractions/internal/models"
	"ms-attractions/internal/reservations"
	"ms-attractions/internal/reservations/pass"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Reserve(ctx context.Context, attractionID, date, userID string) (*models.Reservation, error) {
	args := m.Called(attractionID, date, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockLedger) Cancel(ctx context.Context, reservationID string) (*models.Reservation, error) {
	args := m.Called(reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockLedger) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockLedger) FindActiveReservation(ctx context.Context, userID, attractionID, date string) (*models.Reservation, error) {
	args := m.Called(userID, attractionID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockLedger) ListUserReservations(ctx context.Context, userID string, activeOnly bool) ([]models.Reservation, error) {
	args := m.Called(userID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetAttractions(ctx context.Context, ids []string) (map[string]models.Attraction, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Attraction), args.Error(1)
}

var fixedNow = time.Date(2030, 6, 1, 23, 30, 0, 0, time.UTC)

func newService(t *testing.T, l *MockLedger, c reservations.Catalog) *reservations.ReservationService {
	t.Helper()
	passes, err := pass.NewGenerator("secret")
	require.NoError(t, err)
	svc := reservations.NewReservationService(l, c, passes, nil, time.UTC)
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func asUser(userID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID, Role: "USER"})
}

func TestReserveUsesCallerIdentity(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	want := &models.Reservation{ID: "r1", UserID: "u1", AttractionID: "a1", Date: "2030-06-02", Status: models.ReservationActive}
	l.On("Reserve", "a1", "2030-06-02", "u1").Return(want, nil)

	got, err := svc.Reserve(asUser("u1"), "a1", "2030-06-02")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	l.AssertExpectations(t)
}

func TestReserveRequiresIdentity(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)

	_, err := svc.Reserve(context.Background(), "a1", "2030-06-02")
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	l.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveDateWindow(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	l.On("Reserve", "a1", "2030-06-01", "u1").Return(&models.Reservation{ID: "r1"}, nil)

	_, err := svc.Reserve(asUser("u1"), "a1", "2030-05-31")
	assert.ErrorIs(t, err, reservations.ErrPastDate)

	_, err = svc.Reserve(asUser("u1"), "a1", "June 2")
	assert.ErrorIs(t, err, ledger.ErrInvalidDate)

	_, err = svc.Reserve(asUser("u1"), "a1", "2030-06-01")
	assert.NoError(t, err, "today is still open")
}

func TestTimezoneDecidesToday(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	svc.Location = shanghai

	// 23:30 UTC is already the next day in Shanghai.
	assert.ErrorIs(t, svc.ValidateOpenDate("2030-06-01"), reservations.ErrPastDate)
	assert.NoError(t, svc.ValidateOpenDate("2030-06-02"))
}

func TestReservePassesLedgerErrorsThrough(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	l.On("Reserve", "a1", "2030-06-02", "u1").Return(nil, ledger.ErrSoldOut)

	_, err := svc.Reserve(asUser("u1"), "a1", "2030-06-02")
	assert.ErrorIs(t, err, ledger.ErrSoldOut)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCancelByUserAndDate(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	active := &models.Reservation{ID: "r1", UserID: "u1", AttractionID: "a1", Date: "2030-06-02", Status: models.ReservationActive}
	cancelled := *active
	cancelled.Status = models.ReservationCancelled

	l.On("FindActiveReservation", "u1", "a1", "2030-06-02").Return(active, nil)
	l.On("Cancel", "r1").Return(&cancelled, nil)

	got, err := svc.CancelMine(asUser("u1"), "a1", "2030-06-02")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, got.Status)
	l.AssertExpectations(t)
}

func TestCancelByUserAndDateWithoutReservation(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	l.On("FindActiveReservation", "u1", "a1", "2030-06-02").Return(nil, ledger.ErrReservationNotFound)

	_, err := svc.CancelByUserAndDate(context.Background(), "u1", "a1", "2030-06-02")
	assert.ErrorIs(t, err, ledger.ErrReservationNotFound)
	l.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestCancelReservationOfAnotherUser(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	l.On("GetReservation", "r1").Return(&models.Reservation{ID: "r1", UserID: "someone-else"}, nil)

	_, err := svc.CancelReservation(asUser("u1"), "r1")
	assert.ErrorIs(t, err, ledger.ErrReservationNotFound)
	l.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestListUserReservationsEnriches(t *testing.T) {
	l := new(MockLedger)
	c := new(MockCatalog)
	svc := newService(t, l, c)

	list := []models.Reservation{
		{ID: "r1", UserID: "u1", AttractionID: "a1", Date: "2030-06-02", Status: models.ReservationActive},
		{ID: "r2", UserID: "u1", AttractionID: "a1", Date: "2030-06-03", Status: models.ReservationActive},
		{ID: "r3", UserID: "u1", AttractionID: "gone", Date: "2030-06-04", Status: models.ReservationActive},
	}
	l.On("ListUserReservations", "u1", true).Return(list, nil)
	c.On("GetAttractions", []string{"a1", "gone"}).Return(map[string]models.Attraction{
		"a1": {ID: "a1", Name: "Great Wall", ImageURL: "https://img/wall.jpg"},
	}, nil)

	views, err := svc.ListMine(asUser("u1"), false)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Great Wall", views[0].AttractionName)
	assert.Equal(t, "https://img/wall.jpg", views[1].AttractionImageURL)
	assert.Empty(t, views[2].AttractionName)
}

func TestListUserReservationsHistory(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	l.On("ListUserReservations", "u1", false).Return([]models.Reservation{}, nil)

	views, err := svc.ListUserReservations(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestPassIssueAndVerify(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	r := &models.Reservation{ID: "r1", UserID: "u1", AttractionID: "a1", Date: "2030-06-02", Status: models.ReservationActive}
	l.On("GetReservation", "r1").Return(r, nil)

	img, err := svc.PassImage(asUser("u1"), "r1")
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	_, err = svc.PassImage(asUser("u2"), "r1")
	assert.ErrorIs(t, err, ledger.ErrReservationNotFound)

	code, err := svc.Passes.(*pass.Generator).Encode(*r, fixedNow)
	require.NoError(t, err)

	res, err := svc.VerifyPass(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = svc.VerifyPass(context.Background(), "forged")
	assert.ErrorIs(t, err, pass.ErrInvalidPass)
}

func TestVerifyPassOfCancelledReservation(t *testing.T) {
	l := new(MockLedger)
	svc := newService(t, l, nil)
	r := &models.Reservation{ID: "r1", UserID: "u1", AttractionID: "a1", Date: "2030-06-02", Status: models.ReservationCancelled}
	l.On("GetReservation", "r1").Return(r, nil)

	code, err := svc.Passes.(*pass.Generator).Encode(*r, fixedNow)
	require.NoError(t, err)

	res, err := svc.VerifyPass(context.Background(), code)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "reservation is cancelled", res.Reason)

	_, err = svc.PassImage(asUser("u1"), "r1")
	assert.ErrorIs(t, err, ledger.ErrAlreadyCancelled)
}

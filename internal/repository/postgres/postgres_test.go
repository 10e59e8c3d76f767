package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/repository"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewStore(db)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func reservationRows(status domain.ReservationStatus) *sqlmock.Rows {
	vehicle, _ := json.Marshal(domain.VehicleSnapshot{Make: "Toyota", Model: "Corolla", Year: 2021, DepositAmount: 300})
	return sqlmock.NewRows([]string{"id", "vehicle_id", "renter_id", "owner_id", "status", "start_date", "end_date", "pickup_location", "return_location", "vehicle", "total_price", "check_in_id", "check_out_id", "created_at", "updated_at"}).
		AddRow("res-1", "veh-1", "renter-1", "owner-1", string(status), fixedNow, fixedNow.Add(72*time.Hour), []byte(`{"latitude":-34.6,"longitude":-58.4}`), nil, vehicle, 150.0, nil, nil, fixedNow, fixedNow)
}

func handoffData(t *testing.T, status domain.HandoffStatus) []byte {
	ev := domain.NewHandoffEvent(domain.HandoffKindCheckIn, &domain.Reservation{ID: "res-1", VehicleID: "veh-1", RenterID: "renter-1", OwnerID: "owner-1"}, fixedNow)
	ev.Status = status
	ev.Conditions = &domain.Conditions{Odometer: 1000, FuelLevel: 75, ExteriorCleanliness: 4, InteriorCleanliness: 4, TiresCondition: 4}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func TestReservationRepository_GetByID(t *testing.T) {
	s, mock := newMockStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM reservations WHERE id = \\$1").
			WithArgs("res-1").
			WillReturnRows(reservationRows(domain.ReservationStatusConfirmed))

		res, err := repos.Reservations.GetByID(ctx, "res-1")
		require.NoError(t, err)
		assert.Equal(t, "veh-1", res.VehicleID)
		assert.Equal(t, domain.ReservationStatusConfirmed, res.Status)
		require.NotNil(t, res.PickupLocation)
		assert.Equal(t, -34.6, res.PickupLocation.Latitude)
		assert.Nil(t, res.ReturnLocation)
		assert.Equal(t, 300.0, res.Vehicle.DepositAmount)
		assert.Empty(t, res.CheckInID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM reservations WHERE id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repos.Reservations.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandoffRepository_Patch(t *testing.T) {
	s, mock := newMockStore(t)
	repos := s.Repositories()
	ctx := context.Background()
	id := domain.HandoffKindCheckIn.EventID("res-1")

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT data FROM handoff_events WHERE kind = \\$1 AND id = \\$2 FOR UPDATE").
			WithArgs(domain.HandoffKindCheckIn, id).
			WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(handoffData(t, domain.HandoffStatusPending)))
		mock.ExpectExec("UPDATE handoff_events SET").
			WithArgs(domain.HandoffStatusInProgress, nil, fixedNow, sqlmock.AnyArg(), domain.HandoffKindCheckIn, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repos.Handoffs.Patch(ctx, domain.HandoffKindCheckIn, id, domain.HandoffPatch{
			Photo: &domain.PhotoUpdate{Slot: domain.PhotoSlotFront, URL: "https://cdn/front.jpg"},
		})
		assert.NoError(t, err)
	})

	t.Run("CompletedEventIsRejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT data FROM handoff_events").
			WithArgs(domain.HandoffKindCheckIn, id).
			WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(handoffData(t, domain.HandoffStatusCompleted)))
		mock.ExpectRollback()

		err := repos.Handoffs.Patch(ctx, domain.HandoffKindCheckIn, id, domain.HandoffPatch{})
		assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandoffRepository_ListCompletedByVehicle(t *testing.T) {
	s, mock := newMockStore(t)
	repos := s.Repositories()

	mock.ExpectQuery("SELECT id, data FROM handoff_events WHERE kind = \\$1 AND vehicle_id = \\$2 AND status = \\$3 ORDER BY completed_at DESC").
		WithArgs(domain.HandoffKindCheckIn, "veh-1", domain.HandoffStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("res-2_checkin", handoffData(t, domain.HandoffStatusCompleted)).
			AddRow("res-1_checkin", handoffData(t, domain.HandoffStatusCompleted)))

	events, err := repos.Handoffs.ListCompletedByVehicle(context.Background(), domain.HandoffKindCheckIn, "veh-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "res-2_checkin", events[0].ID)
	assert.NotNil(t, events[0].Photos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RunInTx(t *testing.T) {
	ctx := context.Background()
	id := domain.HandoffKindCheckIn.EventID("res-1")

	finalize := func(tx repository.Tx) error {
		if _, err := tx.GetReservation("res-1"); err != nil {
			return err
		}
		if _, err := tx.GetHandoff(domain.HandoffKindCheckIn, id); err != nil {
			return err
		}
		if err := tx.FinalizeHandoff(domain.HandoffKindCheckIn, id, domain.Finalization{
			Signature: domain.SignatureUpdate{Role: domain.SignatureRoleRenter, Data: "sig"},
		}); err != nil {
			return err
		}
		return tx.UpdateReservation("res-1", domain.ReservationTransition{To: domain.ReservationStatusActive, CheckInID: id})
	}

	t.Run("CommitsAllWrites", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM reservations WHERE id = \\$1 FOR UPDATE").
			WithArgs("res-1").
			WillReturnRows(reservationRows(domain.ReservationStatusConfirmed))
		mock.ExpectQuery("SELECT data FROM handoff_events").
			WithArgs(domain.HandoffKindCheckIn, id).
			WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(handoffData(t, domain.HandoffStatusInProgress)))
		mock.ExpectExec("UPDATE handoff_events SET").
			WithArgs(domain.HandoffStatusCompleted, fixedNow, fixedNow, sqlmock.AnyArg(), domain.HandoffKindCheckIn, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE reservations SET").
			WithArgs(domain.ReservationStatusActive, id, nil, fixedNow, "res-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, s.RunInTx(ctx, finalize))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackWhenReservationWriteFails", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM reservations").
			WithArgs("res-1").
			WillReturnRows(reservationRows(domain.ReservationStatusConfirmed))
		mock.ExpectQuery("SELECT data FROM handoff_events").
			WithArgs(domain.HandoffKindCheckIn, id).
			WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(handoffData(t, domain.HandoffStatusInProgress)))
		mock.ExpectExec("UPDATE handoff_events SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE reservations SET").WillReturnError(&pq.Error{Code: "08006"})
		mock.ExpectRollback()

		err := s.RunInTx(ctx, finalize)
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidTransitionNeverWrites", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM reservations").
			WithArgs("res-1").
			WillReturnRows(reservationRows(domain.ReservationStatusPending))
		mock.ExpectRollback()

		err := s.RunInTx(ctx, func(tx repository.Tx) error {
			if _, err := tx.GetReservation("res-1"); err != nil {
				return err
			}
			return tx.UpdateReservation("res-1", domain.ReservationTransition{To: domain.ReservationStatusCompleted})
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTx_CreateReviewDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := s.RunInTx(context.Background(), func(tx repository.Tx) error {
		return tx.CreateReview(&domain.Review{ID: "res-1_renter_to_owner", Rating: 5})
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.Category
	}{
		{"NoRows", sql.ErrNoRows, domain.CategoryNotFound},
		{"UniqueViolation", &pq.Error{Code: "23505"}, domain.CategoryDuplicate},
		{"InsufficientPrivilege", &pq.Error{Code: "42501"}, domain.CategoryPermissionDenied},
		{"SerializationFailure", &pq.Error{Code: "40001"}, domain.CategoryUnavailable},
		{"ConnectionFailure", &pq.Error{Code: "08006"}, domain.CategoryUnavailable},
		{"CheckViolation", &pq.Error{Code: "23514"}, domain.CategoryValidation},
		{"Deadline", context.DeadlineExceeded, domain.CategoryUnavailable},
		{"DomainPassThrough", domain.ErrAlreadyReviewed, domain.CategoryDuplicate},
		{"Unknown", errors.New("boom"), domain.CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Classify(translate(tt.err)))
		})
	}
	assert.Nil(t, translate(nil))
}

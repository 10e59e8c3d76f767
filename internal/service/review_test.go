package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehirent-backend/internal/domain"
)

func TestReviewService_Submit(t *testing.T) {
	ctx := context.Background()
	vehicle := domain.RatingTarget{Kind: domain.TargetKindVehicle, ID: vehicleID}

	t.Run("UpdatesRunningAverage", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		f.store.PutRating(vehicle, domain.Rating{Average: 4.0, Count: 3})

		review, err := f.reviews.Submit(ctx, renterID, reservationID, domain.ReviewDirectionRenterToVehicle, 5, "  Impecable  ")
		require.NoError(t, err)
		assert.Equal(t, "res-1_renter_to_vehicle", review.ID)
		assert.Equal(t, renterID, review.AuthorID)
		assert.Equal(t, vehicleID, review.TargetID)
		assert.Equal(t, "Impecable", review.Comment)

		assert.Equal(t, domain.Rating{Average: 4.25, Count: 4}, f.store.Rating(vehicle))
	})

	t.Run("RatesUsers", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		_, err := f.reviews.Submit(ctx, ownerID, reservationID, domain.ReviewDirectionOwnerToRenter, 3, "")
		require.NoError(t, err)

		u, err := f.repos.Users.GetByID(ctx, renterID)
		require.NoError(t, err)
		assert.Equal(t, domain.Rating{Average: 3, Count: 1}, u.Rating)
	})

	t.Run("SecondSubmissionRejected", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		_, err := f.reviews.Submit(ctx, renterID, reservationID, domain.ReviewDirectionRenterToOwner, 4, "")
		require.NoError(t, err)

		_, err = f.reviews.Submit(ctx, renterID, reservationID, domain.ReviewDirectionRenterToOwner, 1, "")
		assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)
		assert.Equal(t, domain.Rating{Average: 4, Count: 1}, f.store.Rating(domain.RatingTarget{Kind: domain.TargetKindUser, ID: ownerID}))
	})

	t.Run("ConcurrentSubmissionsWriteOnce", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.reviews.Submit(ctx, renterID, reservationID, domain.ReviewDirectionRenterToVehicle, 5, "")
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, f.store.ReviewCount())
		assert.Equal(t, 1, f.store.Rating(vehicle).Count)
	})

	t.Run("WrongAuthor", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		_, err := f.reviews.Submit(ctx, ownerID, reservationID, domain.ReviewDirectionRenterToVehicle, 5, "")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		_, err = f.reviews.Submit(ctx, strangerID, reservationID, domain.ReviewDirectionOwnerToRenter, 5, "")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("ReservationNotCompleted", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusActive)
		_, err := f.reviews.Submit(ctx, renterID, reservationID, domain.ReviewDirectionRenterToVehicle, 5, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("RatingOutOfRange", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		for _, rating := range []int{0, 6} {
			_, err := f.reviews.Submit(ctx, renterID, reservationID, domain.ReviewDirectionRenterToVehicle, rating, "")
			assert.ErrorIs(t, err, domain.ErrValidation)
		}
		assert.Zero(t, f.store.ReviewCount())
	})

	t.Run("UnknownDirection", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		_, err := f.reviews.Submit(ctx, renterID, reservationID, "renter_to_platform", 5, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("ListForReservation", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusCompleted)
		_, err := f.reviews.Submit(ctx, renterID, reservationID, domain.ReviewDirectionRenterToOwner, 5, "")
		require.NoError(t, err)
		_, err = f.reviews.Submit(ctx, ownerID, reservationID, domain.ReviewDirectionOwnerToRenter, 4, "")
		require.NoError(t, err)

		list, err := f.reviews.ListForReservation(ctx, ownerID, reservationID)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		_, err = f.reviews.ListForReservation(ctx, strangerID, reservationID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

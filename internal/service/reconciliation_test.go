package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehirent-backend/internal/domain"
)

func TestReconciliationService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("KnownDeltas", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusConfirmed)
		f.completeCheckIn(t, conditions(49800, 100))
		c := conditions(50050, 75)
		f.checkOutToSignature(t, &c)

		s, err := f.reconciler.Reconcile(ctx, ownerID, reservationID)
		require.NoError(t, err)
		assert.Equal(t, domain.KnownDelta(250), s.DistanceDriven)
		assert.Equal(t, domain.KnownDelta(-25), s.FuelDelta)
		require.NotNil(t, s.CheckInOdometer)
		assert.Equal(t, 49800, *s.CheckInOdometer)
		assert.Len(t, s.NewDamages, 1)
	})

	t.Run("SkippedConditionsGiveUnknownDeltas", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusConfirmed)
		f.completeCheckIn(t, conditions(49800, 100))
		f.checkOutToSignature(t, nil)

		s, err := f.reconciler.Reconcile(ctx, renterID, reservationID)
		require.NoError(t, err)
		assert.False(t, s.DistanceDriven.Known)
		assert.False(t, s.FuelDelta.Known)
		assert.Nil(t, s.CheckOutOdometer)
		assert.Contains(t, s.Attestation, "desconocida")
	})

	t.Run("CheckInNotComplete", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusConfirmed)
		_, err := f.reconciler.Reconcile(ctx, renterID, reservationID)
		assert.ErrorIs(t, err, domain.ErrCheckInNotComplete)

		_, err = f.handoffs.Start(ctx, renterID, domain.HandoffKindCheckIn, reservationID)
		require.NoError(t, err)
		_, err = f.reconciler.Reconcile(ctx, renterID, reservationID)
		assert.ErrorIs(t, err, domain.ErrCheckInNotComplete)
	})

	t.Run("StrangerIsDenied", func(t *testing.T) {
		f := newFixture(t, domain.ReservationStatusConfirmed)
		_, err := f.reconciler.Reconcile(ctx, strangerID, reservationID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

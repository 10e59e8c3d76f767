package service

import (
	"fmt"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/repository"
)

type lifecycleController struct{}

func NewLifecycleController() LifecycleController {
	return lifecycleController{}
}

// ActivateFromCheckIn stamps the check-in on the reservation and moves a confirmed
// reservation to active.
func (lifecycleController) ActivateFromCheckIn(tx repository.Tx, r *domain.Reservation, checkIn *domain.HandoffEvent) error {
	if checkIn.Kind != domain.HandoffKindCheckIn || checkIn.ReservationID != r.ID {
		return fmt.Errorf("%w: %s is not a check-in of reservation %s", domain.ErrValidation, checkIn.ID, r.ID)
	}
	if r.Status != domain.ReservationStatusConfirmed && r.Status != domain.ReservationStatusActive {
		return fmt.Errorf("%w: reservation %s is %s", domain.ErrInvalidTransition, r.ID, r.Status)
	}
	return tx.UpdateReservation(r.ID, domain.ReservationTransition{
		To:        domain.ReservationStatusActive,
		CheckInID: checkIn.ID,
	})
}

// CompleteFromCheckOut moves an active reservation to completed and stamps the check-out.
// The check-out must carry a signature.
func (lifecycleController) CompleteFromCheckOut(tx repository.Tx, r *domain.Reservation, checkOut *domain.HandoffEvent) error {
	if checkOut.Kind != domain.HandoffKindCheckOut || checkOut.ReservationID != r.ID {
		return fmt.Errorf("%w: %s is not a check-out of reservation %s", domain.ErrValidation, checkOut.ID, r.ID)
	}
	if !checkOut.HasSignature() {
		return fmt.Errorf("%w: check-out %s has no signature", domain.ErrValidation, checkOut.ID)
	}
	return tx.UpdateReservation(r.ID, domain.ReservationTransition{
		To:         domain.ReservationStatusCompleted,
		CheckOutID: checkOut.ID,
	})
}

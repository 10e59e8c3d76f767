package service

import (
	"context"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

type reconciliationService struct {
	reservations repository.ReservationRepository
	handoffs     repository.HandoffRepository
}

func NewReconciliationService(reservations repository.ReservationRepository, handoffs repository.HandoffRepository) ReconciliationService {
	return &reconciliationService{reservations: reservations, handoffs: handoffs}
}

// Reconcile pairs the completed check-in with the check-out in progress.
func (s *reconciliationService) Reconcile(ctx context.Context, userID, reservationID string) (*domain.Settlement, error) {
	logger.EnterMethod("reconciliationService.Reconcile", "reservationID", reservationID)

	r, err := partyReservation(ctx, s.reservations, userID, reservationID)
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.Reconcile", err, "reservationID", reservationID)
		return nil, err
	}
	checkIn, checkOut, err := s.load(ctx, r)
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.Reconcile", err, "reservationID", reservationID)
		return nil, err
	}

	settlement := domain.Reconcile(r, checkIn, checkOut)
	logger.ExitMethod("reconciliationService.Reconcile", "reservationID", reservationID,
		"distance", settlement.DistanceDriven, "fuel", settlement.FuelDelta, "newDamages", len(settlement.NewDamages))
	return settlement, nil
}

func (s *reconciliationService) load(ctx context.Context, r *domain.Reservation) (*domain.HandoffEvent, *domain.HandoffEvent, error) {
	checkIn, err := s.handoffs.GetByID(ctx, domain.HandoffKindCheckIn, checkInID(r))
	if isNotFound(err) {
		return nil, nil, domain.ErrCheckInNotComplete
	}
	if err != nil {
		return nil, nil, err
	}
	if !checkIn.IsCompleted() {
		return nil, nil, domain.ErrCheckInNotComplete
	}

	checkOut, err := s.handoffs.GetByID(ctx, domain.HandoffKindCheckOut, checkOutID(r))
	if err != nil {
		return nil, nil, err
	}
	return checkIn, checkOut, nil
}

func checkInID(r *domain.Reservation) string {
	if r.CheckInID != "" {
		return r.CheckInID
	}
	return domain.HandoffKindCheckIn.EventID(r.ID)
}

func checkOutID(r *domain.Reservation) string {
	if r.CheckOutID != "" {
		return r.CheckOutID
	}
	return domain.HandoffKindCheckOut.EventID(r.ID)
}

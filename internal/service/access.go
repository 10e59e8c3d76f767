package service

import (
	"context"
	"errors"
	"fmt"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/repository"
)

// openEvent loads an event the user may still write to.
func openEvent(ctx context.Context, repo repository.HandoffRepository, userID string, kind domain.HandoffKind, eventID string) (*domain.HandoffEvent, error) {
	ev, err := partyEvent(ctx, repo, userID, kind, eventID)
	if err != nil {
		return nil, err
	}
	if ev.IsCompleted() {
		return nil, domain.ErrAlreadyCompleted
	}
	return ev, nil
}

// partyEvent loads an event and checks the user is its renter or owner.
func partyEvent(ctx context.Context, repo repository.HandoffRepository, userID string, kind domain.HandoffKind, eventID string) (*domain.HandoffEvent, error) {
	ev, err := repo.GetByID(ctx, kind, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsParty(userID) {
		return nil, fmt.Errorf("%w: user is not a party of %s", domain.ErrPermissionDenied, eventID)
	}
	return ev, nil
}

func partyReservation(ctx context.Context, repo repository.ReservationRepository, userID, reservationID string) (*domain.Reservation, error) {
	r, err := repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !r.IsParty(userID) {
		return nil, fmt.Errorf("%w: user is not a party of reservation %s", domain.ErrPermissionDenied, reservationID)
	}
	return r, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

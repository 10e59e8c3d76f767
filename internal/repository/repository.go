package repository

import (
	"context"
	"time"

	"vehirent-backend/internal/domain"
)

type ReservationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
}

type HandoffRepository interface {
	GetByID(ctx context.Context, kind domain.HandoffKind, id string) (*domain.HandoffEvent, error)
	// Patch writes only the fields present in the patch and marks the event in progress.
	Patch(ctx context.Context, kind domain.HandoffKind, id string, patch domain.HandoffPatch) error
	AppendDamage(ctx context.Context, kind domain.HandoffKind, id string, entry domain.DamageEntry) error
	// ListCompletedByVehicle returns completed events for the vehicle, newest first.
	ListCompletedByVehicle(ctx context.Context, kind domain.HandoffKind, vehicleID string) ([]domain.HandoffEvent, error)
	// ListOpenStartedBefore returns pending or in-progress events started before the cutoff.
	ListOpenStartedBefore(ctx context.Context, kind domain.HandoffKind, cutoff time.Time) ([]domain.HandoffEvent, error)
}

type ReviewRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	ListByReservation(ctx context.Context, reservationID string) ([]domain.Review, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Tx is the read-then-write view of the store inside one atomic transaction.
// All reads must happen before the first write.
type Tx interface {
	GetReservation(id string) (*domain.Reservation, error)
	GetHandoff(kind domain.HandoffKind, id string) (*domain.HandoffEvent, error)
	GetReview(id string) (*domain.Review, error)
	GetRating(target domain.RatingTarget) (domain.Rating, error)

	UpdateReservation(id string, t domain.ReservationTransition) error
	CreateHandoff(ev *domain.HandoffEvent) error
	FinalizeHandoff(kind domain.HandoffKind, id string, f domain.Finalization) error
	CreateReview(r *domain.Review) error
	SetRating(target domain.RatingTarget, rating domain.Rating) error
}

// Transactor runs fn atomically. Backends with optimistic concurrency may run fn more
// than once, so fn must not have side effects outside the Tx.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store bundles every repository a backend provides.
type Store struct {
	Reservations ReservationRepository
	Handoffs     HandoffRepository
	Reviews      ReviewRepository
	Users        UserRepository
	Transactor
}

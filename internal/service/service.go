package service

import (
	"context"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/repository"
)

// EvidenceService captures the per-slot photos of a hand-off.
type EvidenceService interface {
	Capture(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, slot domain.PhotoSlot, src Source) (string, error)
	Retake(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, slot domain.PhotoSlot, src Source) (string, error)
	IsComplete(ctx context.Context, userID string, kind domain.HandoffKind, eventID string) (bool, error)
}

// ConditionService records the measurable vehicle state of a hand-off.
type ConditionService interface {
	Save(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, c domain.Conditions) error
	Skip(ctx context.Context, userID string, kind domain.HandoffKind, eventID string) error
}

// DamageLedger appends reported damages and exposes earlier reports for the same vehicle.
type DamageLedger interface {
	Append(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, entry domain.DamageEntry) (*domain.DamageEntry, error)
	Report(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, report DamageReport) (*domain.DamageEntry, error)
	PriorDamages(ctx context.Context, vehicleID, excludingEventID string) ([]domain.PriorDamage, error)
}

// HandoffService drives a check-in or check-out from start to finalize.
type HandoffService interface {
	Start(ctx context.Context, userID string, kind domain.HandoffKind, reservationID string) (*HandoffView, error)
	Get(ctx context.Context, userID string, kind domain.HandoffKind, eventID string) (*HandoffView, error)
	Advance(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, input StageInput) (*HandoffView, error)
	Finalize(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, sig domain.SignatureUpdate) (*FinalizeResult, error)
}

// ReconciliationService builds the check-out settlement summary.
type ReconciliationService interface {
	Reconcile(ctx context.Context, userID, reservationID string) (*domain.Settlement, error)
}

// LifecycleController owns the reservation transitions driven by hand-offs. Both
// methods run inside the caller's transaction.
type LifecycleController interface {
	ActivateFromCheckIn(tx repository.Tx, r *domain.Reservation, checkIn *domain.HandoffEvent) error
	CompleteFromCheckOut(tx repository.Tx, r *domain.Reservation, checkOut *domain.HandoffEvent) error
}

type ReviewService interface {
	Submit(ctx context.Context, userID, reservationID string, direction domain.ReviewDirection, rating int, comment string) (*domain.Review, error)
	ListForReservation(ctx context.Context, userID, reservationID string) ([]domain.Review, error)
}

// ProgressPublisher fans stage updates out to both parties' open sessions.
type ProgressPublisher interface {
	Publish(ctx context.Context, ev domain.ProgressEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.ProgressEvent) error { return nil }

// NoopPublisher discards progress events.
func NoopPublisher() ProgressPublisher { return noopPublisher{} }

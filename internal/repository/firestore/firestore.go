// Package firestore stores reservations, hand-off events and reviews in Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

const (
	collectionReservations = "reservations"
	collectionReviews      = "reviews"
)

type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Reservations: &reservationRepository{client: s.client},
		Handoffs:     &handoffRepository{client: s.client},
		Reviews:      &reviewRepository{client: s.client},
		Users:        &userRepository{client: s.client},
		Transactor:   s,
	}
}

// translate maps Firestore gRPC status codes onto the domain error taxonomy.
// Errors that are already domain errors pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if domain.Classify(err) != domain.CategoryInternal {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted, codes.Canceled:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return err
}

func decodeReservation(snap *firestore.DocumentSnapshot) (*domain.Reservation, error) {
	var r domain.Reservation
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("failed to decode reservation %s: %w", snap.Ref.ID, err)
	}
	r.ID = snap.Ref.ID
	return &r, nil
}

func decodeHandoff(snap *firestore.DocumentSnapshot) (*domain.HandoffEvent, error) {
	var ev domain.HandoffEvent
	if err := snap.DataTo(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode hand-off %s: %w", snap.Ref.ID, err)
	}
	ev.ID = snap.Ref.ID
	if ev.Photos == nil {
		ev.Photos = map[domain.PhotoSlot]string{}
	}
	if ev.Signatures == nil {
		ev.Signatures = map[domain.SignatureRole]string{}
	}
	if ev.Damages == nil {
		ev.Damages = []domain.DamageEntry{}
	}
	return &ev, nil
}

func decodeReview(snap *firestore.DocumentSnapshot) (*domain.Review, error) {
	var r domain.Review
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("failed to decode review %s: %w", snap.Ref.ID, err)
	}
	r.ID = snap.Ref.ID
	return &r, nil
}

type reservationRepository struct {
	client *firestore.Client
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	logger.StoreCall("get", collectionReservations+"/"+id)
	snap, err := r.client.Collection(collectionReservations).Doc(id).Get(ctx)
	logger.StoreResult("get", collectionReservations+"/"+id, err)
	if err != nil {
		return nil, translate(err)
	}
	return decodeReservation(snap)
}

type handoffRepository struct {
	client *firestore.Client
}

func (r *handoffRepository) doc(kind domain.HandoffKind, id string) *firestore.DocumentRef {
	return r.client.Collection(kind.Collection()).Doc(id)
}

func (r *handoffRepository) GetByID(ctx context.Context, kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	path := kind.Collection() + "/" + id
	logger.StoreCall("get", path)
	snap, err := r.doc(kind, id).Get(ctx)
	logger.StoreResult("get", path, err)
	if err != nil {
		return nil, translate(err)
	}
	return decodeHandoff(snap)
}

// patchUpdates converts a patch into field-path updates so unrelated fields are never rewritten.
func patchUpdates(p domain.HandoffPatch) []firestore.Update {
	updates := []firestore.Update{
		{Path: "status", Value: string(domain.HandoffStatusInProgress)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if p.Photo != nil {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"photos", string(p.Photo.Slot)}, Value: p.Photo.URL})
	}
	if p.PhotosSkipped != nil {
		updates = append(updates, firestore.Update{Path: "photosSkipped", Value: *p.PhotosSkipped})
	}
	if p.Conditions != nil {
		updates = append(updates,
			firestore.Update{Path: "conditions", Value: *p.Conditions},
			firestore.Update{Path: "conditionsSkipped", Value: false},
		)
	}
	if p.ConditionsSkipped != nil && p.Conditions == nil {
		updates = append(updates, firestore.Update{Path: "conditionsSkipped", Value: *p.ConditionsSkipped})
	}
	if p.DamagesReviewed != nil {
		updates = append(updates, firestore.Update{Path: "damagesReviewed", Value: *p.DamagesReviewed})
	}
	if p.Signature != nil {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"signatures", string(p.Signature.Role)}, Value: p.Signature.Data})
	}
	if p.KeysExchanged != nil {
		updates = append(updates, firestore.Update{Path: "keysExchanged", Value: *p.KeysExchanged})
	}
	return updates
}

// updateOpen applies updates unless the event has already been finalized.
func (r *handoffRepository) updateOpen(ctx context.Context, kind domain.HandoffKind, id string, updates []firestore.Update) error {
	ref := r.doc(kind, id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		st, err := snap.DataAt("status")
		if err != nil {
			return err
		}
		if st == string(domain.HandoffStatusCompleted) {
			return domain.ErrAlreadyCompleted
		}
		return tx.Update(ref, updates)
	})
}

func (r *handoffRepository) Patch(ctx context.Context, kind domain.HandoffKind, id string, patch domain.HandoffPatch) error {
	logger.EnterMethod("handoffRepository.Patch", "kind", kind, "eventID", id)
	path := kind.Collection() + "/" + id
	logger.StoreCall("update", path)
	err := r.updateOpen(ctx, kind, id, patchUpdates(patch))
	logger.StoreResult("update", path, err)
	if err != nil {
		logger.ExitMethodWithError("handoffRepository.Patch", err, "eventID", id)
		return translate(err)
	}
	logger.ExitMethod("handoffRepository.Patch", "eventID", id)
	return nil
}

func (r *handoffRepository) AppendDamage(ctx context.Context, kind domain.HandoffKind, id string, entry domain.DamageEntry) error {
	logger.EnterMethod("handoffRepository.AppendDamage", "kind", kind, "eventID", id, "damageID", entry.ID)
	err := r.updateOpen(ctx, kind, id, []firestore.Update{
		{Path: "damages", Value: firestore.ArrayUnion(entry)},
		{Path: "status", Value: string(domain.HandoffStatusInProgress)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		logger.ExitMethodWithError("handoffRepository.AppendDamage", err, "eventID", id)
		return translate(err)
	}
	logger.ExitMethod("handoffRepository.AppendDamage", "eventID", id)
	return nil
}

func (r *handoffRepository) list(ctx context.Context, q firestore.Query) ([]domain.HandoffEvent, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()
	var out []domain.HandoffEvent
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translate(err)
		}
		ev, err := decodeHandoff(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (r *handoffRepository) ListCompletedByVehicle(ctx context.Context, kind domain.HandoffKind, vehicleID string) ([]domain.HandoffEvent, error) {
	logger.StoreCall("query", kind.Collection(), "vehicleID", vehicleID)
	q := r.client.Collection(kind.Collection()).
		Where("vehicleId", "==", vehicleID).
		Where("status", "==", string(domain.HandoffStatusCompleted)).
		OrderBy("completedAt", firestore.Desc)
	out, err := r.list(ctx, q)
	logger.StoreResult("query", kind.Collection(), err, "count", len(out))
	return out, err
}

func (r *handoffRepository) ListOpenStartedBefore(ctx context.Context, kind domain.HandoffKind, cutoff time.Time) ([]domain.HandoffEvent, error) {
	logger.StoreCall("query", kind.Collection(), "cutoff", cutoff)
	q := r.client.Collection(kind.Collection()).
		Where("status", "in", []string{string(domain.HandoffStatusPending), string(domain.HandoffStatusInProgress)}).
		Where("startedAt", "<", cutoff).
		OrderBy("startedAt", firestore.Asc)
	out, err := r.list(ctx, q)
	logger.StoreResult("query", kind.Collection(), err, "count", len(out))
	return out, err
}

type reviewRepository struct {
	client *firestore.Client
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	snap, err := r.client.Collection(collectionReviews).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return decodeReview(snap)
}

func (r *reviewRepository) ListByReservation(ctx context.Context, reservationID string) ([]domain.Review, error) {
	iter := r.client.Collection(collectionReviews).
		Where("reservationId", "==", reservationID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()
	var out []domain.Review
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, translate(err)
		}
		rv, err := decodeReview(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, nil
}

type userRepository struct {
	client *firestore.Client
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	snap, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	var u domain.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	u.ID = id
	return &u, nil
}

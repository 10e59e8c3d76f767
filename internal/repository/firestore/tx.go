package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

var errReadBeforeWrite = errors.New("reservation must be read in the transaction before it is updated")

// RunInTx runs fn inside a Firestore transaction. Firestore re-executes fn on contention,
// so each attempt gets a fresh Tx.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	logger.StoreCall("transaction", "")
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(&tx{client: s.client, ftx: ftx, reservations: map[string]*domain.Reservation{}})
	})
	logger.StoreResult("transaction", "", err)
	return translate(err)
}

type tx struct {
	client       *firestore.Client
	ftx          *firestore.Transaction
	reservations map[string]*domain.Reservation
}

func (t *tx) GetReservation(id string) (*domain.Reservation, error) {
	snap, err := t.ftx.Get(t.client.Collection(collectionReservations).Doc(id))
	if err != nil {
		return nil, translate(err)
	}
	r, err := decodeReservation(snap)
	if err != nil {
		return nil, err
	}
	c := *r
	t.reservations[id] = &c
	return r, nil
}

func (t *tx) GetHandoff(kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	snap, err := t.ftx.Get(t.client.Collection(kind.Collection()).Doc(id))
	if err != nil {
		return nil, translate(err)
	}
	return decodeHandoff(snap)
}

func (t *tx) GetReview(id string) (*domain.Review, error) {
	snap, err := t.ftx.Get(t.client.Collection(collectionReviews).Doc(id))
	if err != nil {
		return nil, translate(err)
	}
	return decodeReview(snap)
}

func (t *tx) GetRating(target domain.RatingTarget) (domain.Rating, error) {
	snap, err := t.ftx.Get(t.client.Collection(target.Collection()).Doc(target.ID))
	if err != nil {
		return domain.Rating{}, translate(err)
	}
	var r domain.Rating
	if err := snap.DataTo(&r); err != nil {
		return domain.Rating{}, fmt.Errorf("failed to decode rating for %s/%s: %w", target.Collection(), target.ID, err)
	}
	return r, nil
}

func (t *tx) UpdateReservation(id string, tr domain.ReservationTransition) error {
	current, ok := t.reservations[id]
	if !ok {
		return errReadBeforeWrite
	}
	next := *current
	if err := next.Apply(tr, current.UpdatedAt); err != nil {
		return err
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(next.Status)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if tr.CheckInID != "" {
		updates = append(updates, firestore.Update{Path: "checkInId", Value: tr.CheckInID})
	}
	if tr.CheckOutID != "" {
		updates = append(updates, firestore.Update{Path: "checkOutId", Value: tr.CheckOutID})
	}
	return t.ftx.Update(t.client.Collection(collectionReservations).Doc(id), updates)
}

func (t *tx) CreateHandoff(ev *domain.HandoffEvent) error {
	c := ev.Clone()
	// zero timestamps are replaced by the server clock through the serverTimestamp tag
	c.StartedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	return t.ftx.Create(t.client.Collection(ev.Kind.Collection()).Doc(ev.ID), c)
}

func (t *tx) FinalizeHandoff(kind domain.HandoffKind, id string, f domain.Finalization) error {
	return t.ftx.Update(t.client.Collection(kind.Collection()).Doc(id), []firestore.Update{
		{FieldPath: firestore.FieldPath{"signatures", string(f.Signature.Role)}, Value: f.Signature.Data},
		{Path: "status", Value: string(domain.HandoffStatusCompleted)},
		{Path: "completedAt", Value: firestore.ServerTimestamp},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (t *tx) CreateReview(r *domain.Review) error {
	c := *r
	c.CreatedAt = time.Time{}
	return t.ftx.Create(t.client.Collection(collectionReviews).Doc(r.ID), c)
}

func (t *tx) SetRating(target domain.RatingTarget, rating domain.Rating) error {
	return t.ftx.Update(t.client.Collection(target.Collection()).Doc(target.ID), []firestore.Update{
		{Path: "rating", Value: rating.Average},
		{Path: "ratingCount", Value: rating.Count},
	})
}

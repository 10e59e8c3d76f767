package memory

import (
	"context"
	"fmt"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/repository"
)

// RunInTx serialises transactions and stages every write until fn returns nil.
// A failing fn or a failing staged write leaves the store untouched.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	t := &tx{s: s}
	if err := fn(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range t.writes {
		if err := s.checkWrite(w.collection); err != nil {
			return err
		}
	}
	snap := s.snapshot()
	now := s.now()
	for _, w := range t.writes {
		if err := w.apply(now); err != nil {
			s.restore(snap)
			return err
		}
	}
	return nil
}

type stagedWrite struct {
	collection string
	apply      func(now time.Time) error
}

type tx struct {
	s      *Store
	writes []stagedWrite
}

func (t *tx) stage(collection string, apply func(now time.Time) error) error {
	t.s.mu.Lock()
	err := t.s.checkWrite(collection)
	t.s.mu.Unlock()
	if err != nil {
		return err
	}
	t.writes = append(t.writes, stagedWrite{collection: collection, apply: apply})
	return nil
}

func (t *tx) GetReservation(id string) (*domain.Reservation, error) {
	return t.s.getReservation(id)
}

func (t *tx) GetHandoff(kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	return t.s.getHandoff(kind, id)
}

func (t *tx) GetReview(id string) (*domain.Review, error) {
	return t.s.getReview(id)
}

func (t *tx) GetRating(target domain.RatingTarget) (domain.Rating, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.ratings[ratingKey(target)], nil
}

func (t *tx) UpdateReservation(id string, tr domain.ReservationTransition) error {
	return t.stage(CollectionReservations, func(now time.Time) error {
		r, ok := t.s.reservations[id]
		if !ok {
			return fmt.Errorf("%w: reservation %s", domain.ErrNotFound, id)
		}
		return r.Apply(tr, now)
	})
}

func (t *tx) CreateHandoff(ev *domain.HandoffEvent) error {
	c := ev.Clone()
	return t.stage(ev.Kind.Collection(), func(now time.Time) error {
		if _, exists := t.s.handoffs[c.Kind][c.ID]; exists {
			return fmt.Errorf("%w: %s %s", domain.ErrDuplicate, c.Kind, c.ID)
		}
		t.s.handoffs[c.Kind][c.ID] = c
		return nil
	})
}

func (t *tx) FinalizeHandoff(kind domain.HandoffKind, id string, f domain.Finalization) error {
	return t.stage(kind.Collection(), func(now time.Time) error {
		ev, ok := t.s.handoffs[kind][id]
		if !ok {
			return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
		}
		f.ApplyTo(ev)
		return nil
	})
}

func (t *tx) CreateReview(r *domain.Review) error {
	c := *r
	return t.stage(CollectionReviews, func(now time.Time) error {
		if _, exists := t.s.reviews[c.ID]; exists {
			return fmt.Errorf("%w: review %s", domain.ErrDuplicate, c.ID)
		}
		t.s.reviews[c.ID] = &c
		return nil
	})
}

func (t *tx) SetRating(target domain.RatingTarget, rating domain.Rating) error {
	return t.stage(target.Collection(), func(now time.Time) error {
		t.s.ratings[ratingKey(target)] = rating
		return nil
	})
}

type snapshot struct {
	reservations map[string]*domain.Reservation
	handoffs     map[domain.HandoffKind]map[string]*domain.HandoffEvent
	reviews      map[string]*domain.Review
	ratings      map[string]domain.Rating
}

// snapshot must be called with mu held.
func (s *Store) snapshot() snapshot {
	snap := snapshot{
		reservations: make(map[string]*domain.Reservation, len(s.reservations)),
		handoffs:     make(map[domain.HandoffKind]map[string]*domain.HandoffEvent, len(s.handoffs)),
		reviews:      make(map[string]*domain.Review, len(s.reviews)),
		ratings:      make(map[string]domain.Rating, len(s.ratings)),
	}
	for k, v := range s.reservations {
		c := *v
		snap.reservations[k] = &c
	}
	for kind, events := range s.handoffs {
		m := make(map[string]*domain.HandoffEvent, len(events))
		for k, v := range events {
			m[k] = v.Clone()
		}
		snap.handoffs[kind] = m
	}
	for k, v := range s.reviews {
		c := *v
		snap.reviews[k] = &c
	}
	for k, v := range s.ratings {
		snap.ratings[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.reservations = snap.reservations
	s.handoffs = snap.handoffs
	s.reviews = snap.reviews
	s.ratings = snap.ratings
}

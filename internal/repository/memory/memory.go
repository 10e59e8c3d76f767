// Package memory is an in-process document store used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/repository"
)

const (
	CollectionReservations = "reservations"
	CollectionReviews      = "reviews"
	CollectionUsers        = "users"
	CollectionVehicles     = "vehicles"
)

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	reservations map[string]*domain.Reservation
	handoffs     map[domain.HandoffKind]map[string]*domain.HandoffEvent
	reviews      map[string]*domain.Review
	ratings      map[string]domain.Rating
	users        map[string]*domain.User
	failures     map[string]error

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		reservations: map[string]*domain.Reservation{},
		handoffs: map[domain.HandoffKind]map[string]*domain.HandoffEvent{
			domain.HandoffKindCheckIn:  {},
			domain.HandoffKindCheckOut: {},
		},
		reviews:  map[string]*domain.Review{},
		ratings:  map[string]domain.Rating{},
		users:    map[string]*domain.User{},
		failures: map[string]error{},
		now:      time.Now,
	}
}

// Repositories returns the repository bundle backed by this store.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Reservations: reservationRepository{s},
		Handoffs:     handoffRepository{s},
		Reviews:      reviewRepository{s},
		Users:        userRepository{s},
		Transactor:   s,
	}
}

// SetClock replaces the time source used for server timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// FailWrites makes every subsequent write to the collection fail with err.
// Collections are the document collection names, e.g. "reservations" or "checkOuts".
func (s *Store) FailWrites(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[collection] = err
}

func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]error{}
}

func (s *Store) PutReservation(r *domain.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *r
	s.reservations[r.ID] = &c
}

func (s *Store) PutHandoff(ev *domain.HandoffEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoffs[ev.Kind][ev.ID] = ev.Clone()
}

func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.users[u.ID] = &c
	s.ratings[ratingKey(domain.RatingTarget{Kind: domain.TargetKindUser, ID: u.ID})] = u.Rating
}

func (s *Store) PutRating(target domain.RatingTarget, r domain.Rating) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[ratingKey(target)] = r
}

// Rating reads an aggregate outside any transaction.
func (s *Store) Rating(target domain.RatingTarget) domain.Rating {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratings[ratingKey(target)]
}

// ReviewCount returns the number of stored reviews.
func (s *Store) ReviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

func ratingKey(t domain.RatingTarget) string {
	return t.Collection() + "/" + t.ID
}

// checkWrite must be called with mu held.
func (s *Store) checkWrite(collection string) error {
	if err, ok := s.failures[collection]; ok && err != nil {
		return err
	}
	return nil
}

func (s *Store) getReservation(id string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, id)
	}
	c := *r
	return &c, nil
}

func (s *Store) getHandoff(kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.handoffs[kind][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return ev.Clone(), nil
}

func (s *Store) getReview(id string) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, fmt.Errorf("%w: review %s", domain.ErrNotFound, id)
	}
	c := *r
	return &c, nil
}

type reservationRepository struct{ s *Store }

func (r reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.s.getReservation(id)
}

type handoffRepository struct{ s *Store }

func (r handoffRepository) GetByID(ctx context.Context, kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	return r.s.getHandoff(kind, id)
}

func (r handoffRepository) Patch(ctx context.Context, kind domain.HandoffKind, id string, patch domain.HandoffPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkWrite(kind.Collection()); err != nil {
		return err
	}
	ev, ok := r.s.handoffs[kind][id]
	if !ok {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	if ev.IsCompleted() {
		return domain.ErrAlreadyCompleted
	}
	patch.ApplyTo(ev, r.s.now())
	return nil
}

func (r handoffRepository) AppendDamage(ctx context.Context, kind domain.HandoffKind, id string, entry domain.DamageEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkWrite(kind.Collection()); err != nil {
		return err
	}
	ev, ok := r.s.handoffs[kind][id]
	if !ok {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	if ev.IsCompleted() {
		return domain.ErrAlreadyCompleted
	}
	ev.Damages = append(ev.Damages, entry)
	if ev.Status == domain.HandoffStatusPending {
		ev.Status = domain.HandoffStatusInProgress
	}
	ev.UpdatedAt = r.s.now()
	return nil
}

func (r handoffRepository) ListCompletedByVehicle(ctx context.Context, kind domain.HandoffKind, vehicleID string) ([]domain.HandoffEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.HandoffEvent
	for _, ev := range r.s.handoffs[kind] {
		if ev.VehicleID == vehicleID && ev.IsCompleted() {
			out = append(out, *ev.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return completedAt(out[i]).After(completedAt(out[j]))
	})
	return out, nil
}

func (r handoffRepository) ListOpenStartedBefore(ctx context.Context, kind domain.HandoffKind, cutoff time.Time) ([]domain.HandoffEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.HandoffEvent
	for _, ev := range r.s.handoffs[kind] {
		if !ev.IsCompleted() && ev.StartedAt.Before(cutoff) {
			out = append(out, *ev.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func completedAt(ev domain.HandoffEvent) time.Time {
	if ev.CompletedAt == nil {
		return time.Time{}
	}
	return *ev.CompletedAt
}

type reviewRepository struct{ s *Store }

func (r reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	return r.s.getReview(id)
}

func (r reviewRepository) ListByReservation(ctx context.Context, reservationID string) ([]domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Review
	for _, rv := range r.s.reviews {
		if rv.ReservationID == reservationID {
			out = append(out, *rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type userRepository struct{ s *Store }

func (r userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	c := *u
	c.Rating = r.s.ratings[ratingKey(domain.RatingTarget{Kind: domain.TargetKindUser, ID: id})]
	return &c, nil
}

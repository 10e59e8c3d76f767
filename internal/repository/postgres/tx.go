package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

var errReadBeforeWrite = errors.New("record must be read in the transaction before it is written")

// RunInTx runs fn in a database transaction. Reads inside fn lock their rows.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	logger.DatabaseCall("begin", "")
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.DatabaseResult("begin", 0, err)
		return translate(err)
	}
	defer func() {
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Warn("Rollback failed", "error", rbErr)
			}
		}
		logger.DatabaseResult("commit", 0, err)
	}()

	t := &tx{
		ctx:          ctx,
		q:            sqlTx,
		now:          s.now(),
		reservations: map[string]*domain.Reservation{},
		handoffs:     map[string]*domain.HandoffEvent{},
	}
	if err = fn(t); err != nil {
		return translate(err)
	}
	return translate(sqlTx.Commit())
}

type tx struct {
	ctx          context.Context
	q            querier
	now          time.Time
	reservations map[string]*domain.Reservation
	handoffs     map[string]*domain.HandoffEvent
}

func handoffKey(kind domain.HandoffKind, id string) string {
	return string(kind) + "/" + id
}

func (t *tx) GetReservation(id string) (*domain.Reservation, error) {
	r, err := getReservation(t.ctx, t.q, id, true)
	if err != nil {
		return nil, translate(err)
	}
	c := *r
	t.reservations[id] = &c
	return r, nil
}

func (t *tx) GetHandoff(kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	ev, err := getHandoff(t.ctx, t.q, kind, id, true)
	if err != nil {
		return nil, translate(err)
	}
	t.handoffs[handoffKey(kind, id)] = ev.Clone()
	return ev, nil
}

func (t *tx) GetReview(id string) (*domain.Review, error) {
	rv, err := getReview(t.ctx, t.q, id)
	return rv, translate(err)
}

func (t *tx) GetRating(target domain.RatingTarget) (domain.Rating, error) {
	r, err := getRating(t.ctx, t.q, target)
	return r, translate(err)
}

func (t *tx) UpdateReservation(id string, tr domain.ReservationTransition) error {
	r, ok := t.reservations[id]
	if !ok {
		return errReadBeforeWrite
	}
	if err := r.Apply(tr, t.now); err != nil {
		return err
	}
	return translate(updateReservation(t.ctx, t.q, r))
}

func (t *tx) CreateHandoff(ev *domain.HandoffEvent) error {
	c := ev.Clone()
	c.StartedAt = t.now
	c.UpdatedAt = t.now
	return translate(insertHandoff(t.ctx, t.q, c))
}

func (t *tx) FinalizeHandoff(kind domain.HandoffKind, id string, f domain.Finalization) error {
	ev, ok := t.handoffs[handoffKey(kind, id)]
	if !ok {
		return errReadBeforeWrite
	}
	f.CompletedAt = t.now
	f.ApplyTo(ev)
	return translate(saveHandoff(t.ctx, t.q, ev))
}

func (t *tx) CreateReview(r *domain.Review) error {
	c := *r
	c.CreatedAt = t.now
	return translate(insertReview(t.ctx, t.q, &c))
}

func (t *tx) SetRating(target domain.RatingTarget, rating domain.Rating) error {
	return translate(setRating(t.ctx, t.q, target, rating))
}

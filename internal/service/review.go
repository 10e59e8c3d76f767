package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

type reviewService struct {
	store *repository.Store
	now   func() time.Time
}

func NewReviewService(store *repository.Store, now func() time.Time) ReviewService {
	return &reviewService{store: store, now: now}
}

// Submit writes at most one review per reservation and direction and folds the rating
// into the target's running average in the same transaction. The existence check runs
// before the transaction and again inside it.
func (s *reviewService) Submit(ctx context.Context, userID, reservationID string, direction domain.ReviewDirection, rating int, comment string) (*domain.Review, error) {
	logger.EnterMethod("reviewService.Submit", "reservationID", reservationID, "direction", direction, "rating", rating)

	r, err := s.precheck(ctx, userID, reservationID, direction)
	if err != nil {
		logger.ExitMethodWithError("reviewService.Submit", err, "reservationID", reservationID)
		return nil, err
	}

	authorID, target := direction.Resolve(r)
	review := &domain.Review{
		ID:            domain.ReviewID(reservationID, direction),
		ReservationID: reservationID,
		Direction:     direction,
		AuthorID:      authorID,
		TargetKind:    target.Kind,
		TargetID:      target.ID,
		Rating:        rating,
		Comment:       strings.TrimSpace(comment),
		CreatedAt:     s.now(),
	}
	if err := review.Validate(); err != nil {
		logger.ExitMethodWithError("reviewService.Submit", err, "reservationID", reservationID)
		return nil, err
	}

	var updated domain.Rating
	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetReview(review.ID); err == nil {
			return domain.ErrAlreadyReviewed
		} else if !isNotFound(err) {
			return err
		}
		current, err := tx.GetRating(target)
		if err != nil {
			return err
		}
		if err := tx.CreateReview(review); err != nil {
			return err
		}
		updated = current.Add(review.Rating)
		return tx.SetRating(target, updated)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		err = domain.ErrAlreadyReviewed
	}
	if err != nil {
		logger.ExitMethodWithError("reviewService.Submit", err, "reservationID", reservationID)
		return nil, err
	}

	logger.ExitMethod("reviewService.Submit", "reviewID", review.ID, "targetID", target.ID, "average", updated.Rounded(), "count", updated.Count)
	return review, nil
}

// precheck validates the author and rejects a review that already exists without
// opening a transaction.
func (s *reviewService) precheck(ctx context.Context, userID, reservationID string, direction domain.ReviewDirection) (*domain.Reservation, error) {
	if _, err := domain.ParseReviewDirection(string(direction)); err != nil {
		return nil, err
	}
	r, err := partyReservation(ctx, s.store.Reservations, userID, reservationID)
	if err != nil {
		return nil, err
	}
	if authorID, _ := direction.Resolve(r); authorID != userID {
		return nil, fmt.Errorf("%w: %s reviews are written by the other party", domain.ErrPermissionDenied, direction)
	}
	if r.Status != domain.ReservationStatusCompleted {
		return nil, fmt.Errorf("%w: reservation %s is not completed", domain.ErrValidation, reservationID)
	}

	_, err = s.store.Reviews.GetByID(ctx, domain.ReviewID(reservationID, direction))
	switch {
	case err == nil:
		return nil, domain.ErrAlreadyReviewed
	case !isNotFound(err):
		return nil, err
	}
	return r, nil
}

func (s *reviewService) ListForReservation(ctx context.Context, userID, reservationID string) ([]domain.Review, error) {
	if _, err := partyReservation(ctx, s.store.Reservations, userID, reservationID); err != nil {
		return nil, err
	}
	return s.store.Reviews.ListByReservation(ctx, reservationID)
}

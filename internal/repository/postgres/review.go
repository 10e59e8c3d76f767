package postgres

import (
	"context"
	"database/sql"

	"vehirent-backend/internal/domain"
)

const reviewColumns = `id, reservation_id, direction, author_id, target_kind, target_id, rating, comment, created_at`

type reviewRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(s rowScanner) (*domain.Review, error) {
	var rv domain.Review
	err := s.Scan(&rv.ID, &rv.ReservationID, &rv.Direction, &rv.AuthorID, &rv.TargetKind, &rv.TargetID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func getReview(ctx context.Context, q querier, id string) (*domain.Review, error) {
	return scanReview(q.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
}

func insertReview(ctx context.Context, q querier, rv *domain.Review) error {
	query := `INSERT INTO reviews (` + reviewColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := q.ExecContext(ctx, query, rv.ID, rv.ReservationID, rv.Direction, rv.AuthorID, rv.TargetKind, rv.TargetID, rv.Rating, rv.Comment, rv.CreatedAt)
	return err
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	rv, err := getReview(ctx, r.db, id)
	return rv, translate(err)
}

func (r *reviewRepository) ListByReservation(ctx context.Context, reservationID string) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE reservation_id = $1 ORDER BY created_at`, reservationID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, *rv)
	}
	return out, translate(rows.Err())
}

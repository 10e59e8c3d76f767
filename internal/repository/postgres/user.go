package postgres

import (
	"context"
	"database/sql"

	"vehirent-backend/internal/domain"
)

type userRepository struct {
	db *sql.DB
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, name, email, fcm_token, rating, rating_count FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.FCMToken, &u.Average, &u.Count)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// ratingTable maps a rating target onto its table. The names are fixed, never user input.
func ratingTable(t domain.RatingTarget) string {
	if t.Kind == domain.TargetKindVehicle {
		return "vehicles"
	}
	return "users"
}

func getRating(ctx context.Context, q querier, t domain.RatingTarget) (domain.Rating, error) {
	var r domain.Rating
	err := q.QueryRowContext(ctx, `SELECT rating, rating_count FROM `+ratingTable(t)+` WHERE id = $1 FOR UPDATE`, t.ID).Scan(&r.Average, &r.Count)
	return r, err
}

func setRating(ctx context.Context, q querier, t domain.RatingTarget, r domain.Rating) error {
	_, err := q.ExecContext(ctx, `UPDATE `+ratingTable(t)+` SET rating=$1, rating_count=$2 WHERE id=$3`, r.Average, r.Count, t.ID)
	return err
}

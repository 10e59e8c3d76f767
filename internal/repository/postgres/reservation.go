package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vehirent-backend/internal/domain"
)

const reservationColumns = `id, vehicle_id, renter_id, owner_id, status, start_date, end_date, pickup_location, return_location, vehicle, total_price, check_in_id, check_out_id, created_at, updated_at`

type reservationRepository struct {
	db *sql.DB
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := getReservation(ctx, r.db, id, false)
	return res, translate(err)
}

func getReservation(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		res                   domain.Reservation
		pickup, ret, vehicle  []byte
		checkInID, checkOutID sql.NullString
	)
	err := q.QueryRowContext(ctx, query, id).Scan(&res.ID, &res.VehicleID, &res.RenterID, &res.OwnerID, &res.Status,
		&res.StartDate, &res.EndDate, &pickup, &ret, &vehicle, &res.TotalPrice, &checkInID, &checkOutID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(pickup) > 0 {
		res.PickupLocation = &domain.GeoPoint{}
		if err := json.Unmarshal(pickup, res.PickupLocation); err != nil {
			return nil, fmt.Errorf("failed to decode pickup location: %w", err)
		}
	}
	if len(ret) > 0 {
		res.ReturnLocation = &domain.GeoPoint{}
		if err := json.Unmarshal(ret, res.ReturnLocation); err != nil {
			return nil, fmt.Errorf("failed to decode return location: %w", err)
		}
	}
	if err := json.Unmarshal(vehicle, &res.Vehicle); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle snapshot: %w", err)
	}
	res.CheckInID = checkInID.String
	res.CheckOutID = checkOutID.String
	return &res, nil
}

func updateReservation(ctx context.Context, q querier, res *domain.Reservation) error {
	query := `UPDATE reservations SET status=$1, check_in_id=$2, check_out_id=$3, updated_at=$4 WHERE id=$5`
	_, err := q.ExecContext(ctx, query, res.Status, nullString(res.CheckInID), nullString(res.CheckOutID), res.UpdatedAt, res.ID)
	return err
}

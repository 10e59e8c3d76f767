package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
)

type handoffRepository struct {
	db  *sql.DB
	now func() time.Time
}

func scanHandoff(data []byte, kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	var ev domain.HandoffEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode hand-off %s/%s: %w", kind, id, err)
	}
	ev.ID = id
	ev.Kind = kind
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

func getHandoff(ctx context.Context, q querier, kind domain.HandoffKind, id string, forUpdate bool) (*domain.HandoffEvent, error) {
	query := `SELECT data FROM handoff_events WHERE kind = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var data []byte
	if err := q.QueryRowContext(ctx, query, kind, id).Scan(&data); err != nil {
		return nil, err
	}
	return scanHandoff(data, kind, id)
}

func insertHandoff(ctx context.Context, q querier, ev *domain.HandoffEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	query := `INSERT INTO handoff_events (kind, id, reservation_id, vehicle_id, status, started_at, completed_at, updated_at, data)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = q.ExecContext(ctx, query, ev.Kind, ev.ID, ev.ReservationID, ev.VehicleID, ev.Status, ev.StartedAt, ev.CompletedAt, ev.UpdatedAt, data)
	return err
}

func saveHandoff(ctx context.Context, q querier, ev *domain.HandoffEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	query := `UPDATE handoff_events SET status=$1, completed_at=$2, updated_at=$3, data=$4 WHERE kind=$5 AND id=$6`
	_, err = q.ExecContext(ctx, query, ev.Status, ev.CompletedAt, ev.UpdatedAt, data, ev.Kind, ev.ID)
	return err
}

func (r *handoffRepository) GetByID(ctx context.Context, kind domain.HandoffKind, id string) (*domain.HandoffEvent, error) {
	ev, err := getHandoff(ctx, r.db, kind, id, false)
	return ev, translate(err)
}

// mutateOpen locks the row, applies fn and writes the event back unless it is completed.
func (r *handoffRepository) mutateOpen(ctx context.Context, kind domain.HandoffKind, id string, fn func(ev *domain.HandoffEvent)) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ev, err := getHandoff(ctx, tx, kind, id, true)
	if err != nil {
		return err
	}
	if ev.IsCompleted() {
		return domain.ErrAlreadyCompleted
	}
	fn(ev)
	if err = saveHandoff(ctx, tx, ev); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *handoffRepository) Patch(ctx context.Context, kind domain.HandoffKind, id string, patch domain.HandoffPatch) error {
	logger.EnterMethod("handoffRepository.Patch", "kind", kind, "eventID", id)
	err := r.mutateOpen(ctx, kind, id, func(ev *domain.HandoffEvent) {
		patch.ApplyTo(ev, r.now())
	})
	if err != nil {
		logger.ExitMethodWithError("handoffRepository.Patch", err, "eventID", id)
		return translate(err)
	}
	logger.ExitMethod("handoffRepository.Patch", "eventID", id)
	return nil
}

func (r *handoffRepository) AppendDamage(ctx context.Context, kind domain.HandoffKind, id string, entry domain.DamageEntry) error {
	logger.EnterMethod("handoffRepository.AppendDamage", "kind", kind, "eventID", id, "damageID", entry.ID)
	err := r.mutateOpen(ctx, kind, id, func(ev *domain.HandoffEvent) {
		ev.Damages = append(ev.Damages, entry)
		domain.HandoffPatch{}.ApplyTo(ev, r.now())
	})
	if err != nil {
		logger.ExitMethodWithError("handoffRepository.AppendDamage", err, "eventID", id)
		return translate(err)
	}
	logger.ExitMethod("handoffRepository.AppendDamage", "eventID", id)
	return nil
}

func (r *handoffRepository) list(ctx context.Context, kind domain.HandoffKind, query string, args ...any) ([]domain.HandoffEvent, error) {
	logger.DatabaseCall("select", query, "kind", kind)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("select", 0, err)
		return nil, translate(err)
	}
	defer rows.Close()

	var out []domain.HandoffEvent
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, translate(err)
		}
		ev, err := scanHandoff(data, kind, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	logger.DatabaseResult("select", int64(len(out)), rows.Err())
	return out, translate(rows.Err())
}

func (r *handoffRepository) ListCompletedByVehicle(ctx context.Context, kind domain.HandoffKind, vehicleID string) ([]domain.HandoffEvent, error) {
	query := `SELECT id, data FROM handoff_events WHERE kind = $1 AND vehicle_id = $2 AND status = $3 ORDER BY completed_at DESC`
	return r.list(ctx, kind, query, kind, vehicleID, domain.HandoffStatusCompleted)
}

func (r *handoffRepository) ListOpenStartedBefore(ctx context.Context, kind domain.HandoffKind, cutoff time.Time) ([]domain.HandoffEvent, error) {
	query := `SELECT id, data FROM handoff_events WHERE kind = $1 AND status IN ($2, $3) AND started_at < $4 ORDER BY started_at`
	return r.list(ctx, kind, query, kind, domain.HandoffStatusPending, domain.HandoffStatusInProgress, cutoff)
}

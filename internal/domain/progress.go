package domain

import "time"

// ProgressEvent is broadcast to both parties whenever a hand-off stage is persisted.
type ProgressEvent struct {
	EventID       string      `json:"eventId"`
	Kind          HandoffKind `json:"kind"`
	ReservationID string      `json:"reservationId"`
	RenterID      string      `json:"renterId"`
	OwnerID       string      `json:"ownerId"`
	Stage         Stage       `json:"stage"`
	Action        string      `json:"action"`
	At            time.Time   `json:"at"`
}

func NewProgressEvent(e *HandoffEvent, action string, at time.Time) ProgressEvent {
	return ProgressEvent{
		EventID:       e.ID,
		Kind:          e.Kind,
		ReservationID: e.ReservationID,
		RenterID:      e.RenterID,
		OwnerID:       e.OwnerID,
		Stage:         DeriveStage(e),
		Action:        action,
		At:            at,
	}
}

// Recipients are the users who should see the event.
func (p ProgressEvent) Recipients() []string {
	return []string{p.RenterID, p.OwnerID}
}

package domain

import (
	"fmt"
	"time"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// rank orders the forward path; cancelled sits outside it.
func (s ReservationStatus) rank() int {
	switch s {
	case ReservationStatusPending:
		return 0
	case ReservationStatusConfirmed:
		return 1
	case ReservationStatusActive:
		return 2
	case ReservationStatusCompleted:
		return 3
	default:
		return -1
	}
}

// CanTransition reports whether a reservation may move from one status to another.
// Forward moves are one step at a time; cancellation is allowed from any state before completed.
func CanTransition(from, to ReservationStatus) bool {
	if to == ReservationStatusCancelled {
		return from != ReservationStatusCompleted && from != ReservationStatusCancelled
	}
	if from.rank() < 0 || to.rank() < 0 {
		return false
	}
	return to.rank() == from.rank()+1
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
}

// VehicleSnapshot is the copy of the vehicle taken at booking time.
type VehicleSnapshot struct {
	Make          string  `json:"make" firestore:"make"`
	Model         string  `json:"model" firestore:"model"`
	Year          int     `json:"year" firestore:"year"`
	Plate         string  `json:"plate" firestore:"plate"`
	PricePerDay   float64 `json:"pricePerDay" firestore:"pricePerDay"`
	DepositAmount float64 `json:"depositAmount" firestore:"depositAmount"`
	PhotoURL      string  `json:"photoUrl,omitempty" firestore:"photoUrl,omitempty"`
}

type Reservation struct {
	ID             string            `json:"id" firestore:"-"`
	VehicleID      string            `json:"vehicleId" firestore:"vehicleId"`
	RenterID       string            `json:"renterId" firestore:"renterId"`
	OwnerID        string            `json:"ownerId" firestore:"ownerId"`
	Status         ReservationStatus `json:"status" firestore:"status"`
	StartDate      time.Time         `json:"startDate" firestore:"startDate"`
	EndDate        time.Time         `json:"endDate" firestore:"endDate"`
	PickupLocation *GeoPoint         `json:"pickupLocation,omitempty" firestore:"pickupLocation,omitempty"`
	ReturnLocation *GeoPoint         `json:"returnLocation,omitempty" firestore:"returnLocation,omitempty"`
	Vehicle        VehicleSnapshot   `json:"vehicle" firestore:"vehicle"`
	TotalPrice     float64           `json:"totalPrice" firestore:"totalPrice"`
	CheckInID      string            `json:"checkInId,omitempty" firestore:"checkInId,omitempty"`
	CheckOutID     string            `json:"checkOutId,omitempty" firestore:"checkOutId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt" firestore:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt" firestore:"updatedAt"`
}

// IsParty reports whether the user is the renter or the owner of the reservation.
func (r *Reservation) IsParty(userID string) bool {
	return userID != "" && (r.RenterID == userID || r.OwnerID == userID)
}

// ReservationTransition is the set of reservation fields changed together with a hand-off finalize.
type ReservationTransition struct {
	To         ReservationStatus
	CheckInID  string
	CheckOutID string
}

// Apply validates and applies the transition in place.
func (r *Reservation) Apply(t ReservationTransition, now time.Time) error {
	if t.To != r.Status {
		if !CanTransition(r.Status, t.To) {
			return fmt.Errorf("%w: reservation %s cannot move from %s to %s", ErrInvalidTransition, r.ID, r.Status, t.To)
		}
		r.Status = t.To
	}
	if t.CheckInID != "" {
		r.CheckInID = t.CheckInID
	}
	if t.CheckOutID != "" {
		r.CheckOutID = t.CheckOutID
	}
	r.UpdatedAt = now
	return nil
}

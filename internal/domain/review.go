package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type ReviewDirection string

const (
	// ReviewDirectionOwnerToRenter is the owner rating the renter.
	ReviewDirectionOwnerToRenter ReviewDirection = "owner_to_renter"
	// ReviewDirectionRenterToOwner is the renter rating the owner.
	ReviewDirectionRenterToOwner ReviewDirection = "renter_to_owner"
	// ReviewDirectionRenterToVehicle is the renter rating the vehicle.
	ReviewDirectionRenterToVehicle ReviewDirection = "renter_to_vehicle"
)

func ParseReviewDirection(s string) (ReviewDirection, error) {
	switch ReviewDirection(s) {
	case ReviewDirectionOwnerToRenter, ReviewDirectionRenterToOwner, ReviewDirectionRenterToVehicle:
		return ReviewDirection(s), nil
	}
	return "", fmt.Errorf("%w: unknown review direction %q", ErrValidation, s)
}

// ReviewID is deterministic per (reservation, direction) so a second submission collides.
func ReviewID(reservationID string, d ReviewDirection) string {
	return reservationID + "_" + string(d)
}

type TargetKind string

const (
	TargetKindUser    TargetKind = "user"
	TargetKindVehicle TargetKind = "vehicle"
)

// RatingTarget identifies the entity whose running average a review updates.
type RatingTarget struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

func (t RatingTarget) Collection() string {
	if t.Kind == TargetKindVehicle {
		return "vehicles"
	}
	return "users"
}

// Resolve returns who must write a review in this direction and what it rates.
func (d ReviewDirection) Resolve(r *Reservation) (authorID string, target RatingTarget) {
	switch d {
	case ReviewDirectionOwnerToRenter:
		return r.OwnerID, RatingTarget{Kind: TargetKindUser, ID: r.RenterID}
	case ReviewDirectionRenterToOwner:
		return r.RenterID, RatingTarget{Kind: TargetKindUser, ID: r.OwnerID}
	default:
		return r.RenterID, RatingTarget{Kind: TargetKindVehicle, ID: r.VehicleID}
	}
}

type Review struct {
	ID            string          `json:"id" firestore:"-"`
	ReservationID string          `json:"reservationId" firestore:"reservationId"`
	Direction     ReviewDirection `json:"direction" firestore:"direction"`
	AuthorID      string          `json:"authorId" firestore:"authorId"`
	TargetKind    TargetKind      `json:"targetKind" firestore:"targetKind"`
	TargetID      string          `json:"targetId" firestore:"targetId"`
	Rating        int             `json:"rating" firestore:"rating"`
	Comment       string          `json:"comment,omitempty" firestore:"comment"`
	CreatedAt     time.Time       `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

func (r Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if len(strings.TrimSpace(r.Comment)) > 1000 {
		return fmt.Errorf("%w: comment is too long", ErrValidation)
	}
	return nil
}

// Rating is the running aggregate stored on a user or vehicle.
type Rating struct {
	Average float64 `json:"rating" firestore:"rating"`
	Count   int     `json:"ratingCount" firestore:"ratingCount"`
}

// Add folds one new rating into the running average. The stored average is kept
// unrounded so repeated folds do not accumulate rounding error.
func (r Rating) Add(value int) Rating {
	avg := (r.Average*float64(r.Count) + float64(value)) / float64(r.Count+1)
	return Rating{Average: avg, Count: r.Count + 1}
}

// Rounded is the average to two decimals, as shown to users.
func (r Rating) Rounded() float64 {
	return math.Round(r.Average*100) / 100
}

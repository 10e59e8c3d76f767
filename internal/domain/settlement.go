package domain

import (
	"fmt"
	"strings"
)

// Delta is a usage difference that is only meaningful when both snapshots exist.
type Delta struct {
	Value int  `json:"value"`
	Known bool `json:"known"`
}

func UnknownDelta() Delta { return Delta{} }

func KnownDelta(v int) Delta { return Delta{Value: v, Known: true} }

func (d Delta) String() string {
	if !d.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d", d.Value)
}

// Settlement is the display summary shown at the check-out signature stage. It is never persisted.
type Settlement struct {
	ReservationID    string        `json:"reservationId"`
	CheckInID        string        `json:"checkInId"`
	CheckOutID       string        `json:"checkOutId"`
	DistanceDriven   Delta         `json:"distanceDriven"`
	FuelDelta        Delta         `json:"fuelDelta"`
	CheckInOdometer  *int          `json:"checkInOdometer,omitempty"`
	CheckOutOdometer *int          `json:"checkOutOdometer,omitempty"`
	NewDamages       []DamageEntry `json:"newDamages"`
	DepositAmount    float64       `json:"depositAmount"`
	Attestation      string        `json:"attestation"`
}

// Reconcile compares the pickup and return snapshots. A missing conditions object on
// either side makes the deltas unknown rather than computing against zero.
func Reconcile(r *Reservation, checkIn, checkOut *HandoffEvent) *Settlement {
	s := &Settlement{
		ReservationID:  r.ID,
		DistanceDriven: UnknownDelta(),
		FuelDelta:      UnknownDelta(),
		NewDamages:     []DamageEntry{},
		DepositAmount:  r.Vehicle.DepositAmount,
	}
	if checkIn != nil {
		s.CheckInID = checkIn.ID
		if checkIn.Conditions != nil {
			odo := checkIn.Conditions.Odometer
			s.CheckInOdometer = &odo
		}
	}
	if checkOut != nil {
		s.CheckOutID = checkOut.ID
		s.NewDamages = append(s.NewDamages, checkOut.Damages...)
		if checkOut.Conditions != nil {
			odo := checkOut.Conditions.Odometer
			s.CheckOutOdometer = &odo
		}
	}
	if checkIn != nil && checkOut != nil && checkIn.Conditions != nil && checkOut.Conditions != nil {
		s.DistanceDriven = KnownDelta(checkOut.Conditions.Odometer - checkIn.Conditions.Odometer)
		s.FuelDelta = KnownDelta(checkOut.Conditions.FuelLevel - checkIn.Conditions.FuelLevel)
	}
	s.Attestation = attestation(s)
	return s
}

func attestation(s *Settlement) string {
	var b strings.Builder
	b.WriteString("Declaro que devuelvo el vehículo en las condiciones registradas.")
	if s.DistanceDriven.Known {
		fmt.Fprintf(&b, " Distancia recorrida: %d km.", s.DistanceDriven.Value)
	} else {
		b.WriteString(" Distancia recorrida: desconocida.")
	}
	if s.FuelDelta.Known {
		fmt.Fprintf(&b, " Variación de combustible: %+d%%.", s.FuelDelta.Value)
	} else {
		b.WriteString(" Variación de combustible: desconocida.")
	}
	switch n := len(s.NewDamages); n {
	case 0:
		b.WriteString(" Sin daños nuevos reportados.")
	case 1:
		b.WriteString(" 1 daño nuevo reportado.")
	default:
		fmt.Fprintf(&b, " %d daños nuevos reportados.", n)
	}
	return b.String()
}

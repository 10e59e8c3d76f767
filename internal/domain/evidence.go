package domain

import "fmt"

type PhotoSlot string

const (
	PhotoSlotFront         PhotoSlot = "front"
	PhotoSlotBack          PhotoSlot = "back"
	PhotoSlotLeft          PhotoSlot = "left"
	PhotoSlotRight         PhotoSlot = "right"
	PhotoSlotInteriorFront PhotoSlot = "interiorFront"
	PhotoSlotInteriorBack  PhotoSlot = "interiorBack"
	PhotoSlotDashboard     PhotoSlot = "dashboard"
	PhotoSlotFuelLevel     PhotoSlot = "fuelLevel"
)

var requiredSlots = map[HandoffKind][]PhotoSlot{
	HandoffKindCheckIn: {
		PhotoSlotFront, PhotoSlotBack, PhotoSlotLeft, PhotoSlotRight,
		PhotoSlotInteriorFront, PhotoSlotInteriorBack, PhotoSlotDashboard, PhotoSlotFuelLevel,
	},
	HandoffKindCheckOut: {
		PhotoSlotFront, PhotoSlotBack, PhotoSlotLeft, PhotoSlotRight,
		PhotoSlotInteriorFront, PhotoSlotDashboard,
	},
}

// RequiredSlots returns the vantage points a hand-off of this kind must photograph, in capture order.
func RequiredSlots(kind HandoffKind) []PhotoSlot {
	return append([]PhotoSlot(nil), requiredSlots[kind]...)
}

// ValidateSlot rejects slots that are not part of the kind's fixed set.
func ValidateSlot(kind HandoffKind, slot PhotoSlot) error {
	for _, s := range requiredSlots[kind] {
		if s == slot {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not a %s photo slot", ErrValidation, slot, kind)
}

// MissingSlots lists required slots without a URL.
func MissingSlots(kind HandoffKind, photos map[PhotoSlot]string) []PhotoSlot {
	var missing []PhotoSlot
	for _, s := range requiredSlots[kind] {
		if photos[s] == "" {
			missing = append(missing, s)
		}
	}
	return missing
}

// PhotosComplete is true iff every required slot has a non-empty URL.
func PhotosComplete(kind HandoffKind, photos map[PhotoSlot]string) bool {
	return len(MissingSlots(kind, photos)) == 0
}

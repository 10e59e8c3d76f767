package domain

import (
	"fmt"
	"time"
)

type HandoffKind string

const (
	HandoffKindCheckIn  HandoffKind = "checkin"
	HandoffKindCheckOut HandoffKind = "checkout"
)

func ParseHandoffKind(s string) (HandoffKind, error) {
	switch HandoffKind(s) {
	case HandoffKindCheckIn, HandoffKindCheckOut:
		return HandoffKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown hand-off kind %q", ErrValidation, s)
}

// Collection is the document collection holding events of this kind.
func (k HandoffKind) Collection() string {
	if k == HandoffKindCheckOut {
		return "checkOuts"
	}
	return "checkIns"
}

// EventID is deterministic so a reservation carries at most one event per kind.
func (k HandoffKind) EventID(reservationID string) string {
	return reservationID + "_" + string(k)
}

type HandoffStatus string

const (
	HandoffStatusPending    HandoffStatus = "pending"
	HandoffStatusInProgress HandoffStatus = "in_progress"
	HandoffStatusCompleted  HandoffStatus = "completed"
)

type SignatureRole string

const (
	SignatureRoleRenter SignatureRole = "renter"
	SignatureRoleOwner  SignatureRole = "owner"
)

func ParseSignatureRole(s string) (SignatureRole, error) {
	switch SignatureRole(s) {
	case SignatureRoleRenter, SignatureRoleOwner:
		return SignatureRole(s), nil
	}
	return "", fmt.Errorf("%w: unknown signature role %q", ErrValidation, s)
}

type HandoffEvent struct {
	ID                string                   `json:"id" firestore:"-"`
	Kind              HandoffKind              `json:"kind" firestore:"kind"`
	ReservationID     string                   `json:"reservationId" firestore:"reservationId"`
	VehicleID         string                   `json:"vehicleId" firestore:"vehicleId"`
	RenterID          string                   `json:"renterId" firestore:"renterId"`
	OwnerID           string                   `json:"ownerId" firestore:"ownerId"`
	Status            HandoffStatus            `json:"status" firestore:"status"`
	StartedAt         time.Time                `json:"startedAt" firestore:"startedAt,serverTimestamp"`
	CompletedAt       *time.Time               `json:"completedAt,omitempty" firestore:"completedAt"`
	UpdatedAt         time.Time                `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
	Photos            map[PhotoSlot]string     `json:"photos" firestore:"photos"`
	PhotosSkipped     bool                     `json:"photosSkipped" firestore:"photosSkipped"`
	Conditions        *Conditions              `json:"conditions" firestore:"conditions"`
	ConditionsSkipped bool                     `json:"conditionsSkipped" firestore:"conditionsSkipped"`
	Damages           []DamageEntry            `json:"damages" firestore:"damages"`
	DamagesReviewed   bool                     `json:"damagesReviewed" firestore:"damagesReviewed"`
	Signatures        map[SignatureRole]string `json:"signatures" firestore:"signatures"`
	KeysExchanged     bool                     `json:"keysExchanged" firestore:"keysExchanged"`
}

// NewHandoffEvent builds the initial pending event for a reservation.
func NewHandoffEvent(kind HandoffKind, r *Reservation, now time.Time) *HandoffEvent {
	return &HandoffEvent{
		ID:            kind.EventID(r.ID),
		Kind:          kind,
		ReservationID: r.ID,
		VehicleID:     r.VehicleID,
		RenterID:      r.RenterID,
		OwnerID:       r.OwnerID,
		Status:        HandoffStatusPending,
		StartedAt:     now,
		UpdatedAt:     now,
		Photos:        map[PhotoSlot]string{},
		Damages:       []DamageEntry{},
		Signatures:    map[SignatureRole]string{},
	}
}

func (e *HandoffEvent) IsCompleted() bool {
	return e.Status == HandoffStatusCompleted
}

func (e *HandoffEvent) IsParty(userID string) bool {
	return userID != "" && (e.RenterID == userID || e.OwnerID == userID)
}

// HasSignature reports whether at least one party signed.
func (e *HandoffEvent) HasSignature() bool {
	for _, s := range e.Signatures {
		if s != "" {
			return true
		}
	}
	return false
}

// CanFinalize checks the completed-state invariant against the persisted fields.
func (e *HandoffEvent) CanFinalize() error {
	if e.Conditions == nil {
		return fmt.Errorf("%w: vehicle conditions must be recorded before finalizing", ErrValidation)
	}
	if !e.HasSignature() {
		return fmt.Errorf("%w: at least one signature is required", ErrValidation)
	}
	return nil
}

// HandoffPatch carries the fields written by one stage. Nil fields are left untouched.
type HandoffPatch struct {
	Photo             *PhotoUpdate
	PhotosSkipped     *bool
	Conditions        *Conditions
	ConditionsSkipped *bool
	DamagesReviewed   *bool
	Signature         *SignatureUpdate
	KeysExchanged     *bool
}

type PhotoUpdate struct {
	Slot PhotoSlot
	URL  string
}

type SignatureUpdate struct {
	Role SignatureRole
	Data string
}

// ApplyTo mutates an in-memory event the same way a backend applies the patch.
func (p HandoffPatch) ApplyTo(e *HandoffEvent, now time.Time) {
	if p.Photo != nil {
		if e.Photos == nil {
			e.Photos = map[PhotoSlot]string{}
		}
		e.Photos[p.Photo.Slot] = p.Photo.URL
	}
	if p.PhotosSkipped != nil {
		e.PhotosSkipped = *p.PhotosSkipped
	}
	if p.Conditions != nil {
		c := *p.Conditions
		e.Conditions = &c
		e.ConditionsSkipped = false
	}
	if p.ConditionsSkipped != nil {
		e.ConditionsSkipped = *p.ConditionsSkipped
	}
	if p.DamagesReviewed != nil {
		e.DamagesReviewed = *p.DamagesReviewed
	}
	if p.Signature != nil {
		if e.Signatures == nil {
			e.Signatures = map[SignatureRole]string{}
		}
		e.Signatures[p.Signature.Role] = p.Signature.Data
	}
	if p.KeysExchanged != nil {
		e.KeysExchanged = *p.KeysExchanged
	}
	if e.Status == HandoffStatusPending {
		e.Status = HandoffStatusInProgress
	}
	e.UpdatedAt = now
}

// Finalization is the terminal write for an event.
type Finalization struct {
	Signature   SignatureUpdate
	CompletedAt time.Time
}

func (f Finalization) ApplyTo(e *HandoffEvent) {
	if e.Signatures == nil {
		e.Signatures = map[SignatureRole]string{}
	}
	e.Signatures[f.Signature.Role] = f.Signature.Data
	e.Status = HandoffStatusCompleted
	at := f.CompletedAt
	e.CompletedAt = &at
	e.UpdatedAt = at
}

// Clone returns a deep copy.
func (e *HandoffEvent) Clone() *HandoffEvent {
	c := *e
	c.Photos = make(map[PhotoSlot]string, len(e.Photos))
	for k, v := range e.Photos {
		c.Photos[k] = v
	}
	c.Signatures = make(map[SignatureRole]string, len(e.Signatures))
	for k, v := range e.Signatures {
		c.Signatures[k] = v
	}
	c.Damages = append([]DamageEntry(nil), e.Damages...)
	if e.Conditions != nil {
		cond := *e.Conditions
		c.Conditions = &cond
	}
	if e.CompletedAt != nil {
		at := *e.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

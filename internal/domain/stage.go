package domain

import "fmt"

// Stage is the capture step a hand-off currently waits on. It is never stored;
// DeriveStage computes it from the persisted event so an interrupted flow
// resumes where it left off.
type Stage int

const (
	StageNotStarted Stage = iota
	StagePhotosPending
	StageConditionsPending
	StageDamagesPending
	StageSignaturePending
	StageCompleted
)

var stageNames = map[Stage]string{
	StageNotStarted:        "not_started",
	StagePhotosPending:     "photos",
	StageConditionsPending: "conditions",
	StageDamagesPending:    "damages",
	StageSignaturePending:  "signature",
	StageCompleted:         "completed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for st, name := range stageNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("%w: unknown stage %q", ErrValidation, string(b))
}

// DeriveStage returns the first stage whose data is neither present nor explicitly skipped.
// Once the later stages are done, skipped conditions are asked for again before signing.
func DeriveStage(e *HandoffEvent) Stage {
	switch {
	case e == nil:
		return StageNotStarted
	case e.IsCompleted():
		return StageCompleted
	case !e.PhotosSkipped && !PhotosComplete(e.Kind, e.Photos):
		return StagePhotosPending
	case e.Conditions == nil && !e.ConditionsSkipped:
		return StageConditionsPending
	case !e.DamagesReviewed:
		return StageDamagesPending
	case e.Conditions == nil:
		// A skipped condition record lets the flow move on, but finalize needs one.
		return StageConditionsPending
	default:
		return StageSignaturePending
	}
}

// Progress summarises an event for the capture surface.
type Progress struct {
	Stage          Stage       `json:"stage"`
	MissingPhotos  []PhotoSlot `json:"missingPhotos"`
	PhotosComplete bool        `json:"photosComplete"`
	HasConditions  bool        `json:"hasConditions"`
	DamageCount    int         `json:"damageCount"`
	HasSignature   bool        `json:"hasSignature"`
	KeysExchanged  bool        `json:"keysExchanged"`
}

func ProgressOf(e *HandoffEvent) Progress {
	if e == nil {
		return Progress{Stage: StageNotStarted}
	}
	missing := MissingSlots(e.Kind, e.Photos)
	return Progress{
		Stage:          DeriveStage(e),
		MissingPhotos:  missing,
		PhotosComplete: len(missing) == 0,
		HasConditions:  e.Conditions != nil,
		DamageCount:    len(e.Damages),
		HasSignature:   e.HasSignature(),
		KeysExchanged:  e.KeysExchanged,
	}
}

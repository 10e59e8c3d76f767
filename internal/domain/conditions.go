package domain

import "fmt"

// Conditions is the measurable vehicle state captured once per hand-off.
type Conditions struct {
	Odometer            int  `json:"odometer" firestore:"odometer"`
	FuelLevel           int  `json:"fuelLevel" firestore:"fuelLevel"`
	ExteriorCleanliness int  `json:"exteriorCleanliness" firestore:"exteriorCleanliness"`
	InteriorCleanliness int  `json:"interiorCleanliness" firestore:"interiorCleanliness"`
	TiresCondition      int  `json:"tiresCondition" firestore:"tiresCondition"`
	LightsWorking       bool `json:"lightsWorking" firestore:"lightsWorking"`
	DocumentsPresent    bool `json:"documentsPresent" firestore:"documentsPresent"`
}

// FuelSteps are the levels offered by the capture surface.
var FuelSteps = []int{0, 25, 50, 75, 100}

func (c Conditions) Validate() error {
	if c.Odometer < 0 {
		return fmt.Errorf("%w: odometer must not be negative", ErrValidation)
	}
	if c.FuelLevel < 0 || c.FuelLevel > 100 {
		return fmt.Errorf("%w: fuel level must be between 0 and 100", ErrValidation)
	}
	scales := []struct {
		name  string
		value int
	}{
		{"exterior cleanliness", c.ExteriorCleanliness},
		{"interior cleanliness", c.InteriorCleanliness},
		{"tires condition", c.TiresCondition},
	}
	for _, s := range scales {
		if s.value < 1 || s.value > 5 {
			return fmt.Errorf("%w: %s must be between 1 and 5", ErrValidation, s.name)
		}
	}
	return nil
}

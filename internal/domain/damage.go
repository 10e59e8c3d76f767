package domain

import (
	"fmt"
	"strings"
	"time"
)

type DamageType string

const (
	DamageTypeScratch DamageType = "scratch"
	DamageTypeDent    DamageType = "dent"
	DamageTypeStain   DamageType = "stain"
	DamageTypeCrack   DamageType = "crack"
	DamageTypeOther   DamageType = "other"
)

type DamageSeverity string

const (
	DamageSeverityMinor    DamageSeverity = "minor"
	DamageSeverityModerate DamageSeverity = "moderate"
	DamageSeveritySevere   DamageSeverity = "severe"
)

// DamageEntry is immutable once appended; corrections are new entries.
type DamageEntry struct {
	ID         string         `json:"id" firestore:"id"`
	Location   string         `json:"location" firestore:"location"`
	Type       DamageType     `json:"type" firestore:"type"`
	Severity   DamageSeverity `json:"severity" firestore:"severity"`
	Photo      string         `json:"photo" firestore:"photo"`
	Notes      string         `json:"notes" firestore:"notes"`
	ReportedAt time.Time      `json:"reportedAt" firestore:"reportedAt"`
}

// Validate enforces the fields required before an entry may reach the ledger.
func (d DamageEntry) Validate() error {
	if strings.TrimSpace(d.Photo) == "" {
		return fmt.Errorf("%w: damage photo is required", ErrValidation)
	}
	if strings.TrimSpace(d.Notes) == "" {
		return fmt.Errorf("%w: damage notes are required", ErrValidation)
	}
	if strings.TrimSpace(d.Location) == "" {
		return fmt.Errorf("%w: damage location is required", ErrValidation)
	}
	switch d.Type {
	case DamageTypeScratch, DamageTypeDent, DamageTypeStain, DamageTypeCrack, DamageTypeOther:
	default:
		return fmt.Errorf("%w: unknown damage type %q", ErrValidation, d.Type)
	}
	switch d.Severity {
	case DamageSeverityMinor, DamageSeverityModerate, DamageSeveritySevere:
	default:
		return fmt.Errorf("%w: unknown damage severity %q", ErrValidation, d.Severity)
	}
	return nil
}

// PriorDamage is a damage entry together with the event that reported it.
type PriorDamage struct {
	DamageEntry
	EventID    string    `json:"eventId"`
	ReportedOn time.Time `json:"reportedOn"`
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/imaging"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
	"vehirent-backend/internal/storage"
)

// DamageReport is a damage entry whose photo still has to be uploaded.
type DamageReport struct {
	Location string
	Type     domain.DamageType
	Severity domain.DamageSeverity
	Notes    string
	Photo    Source
}

type damageLedger struct {
	handoffs repository.HandoffRepository
	uploader *photoUploader
	progress ProgressPublisher
	now      func() time.Time
}

func NewDamageLedger(handoffs repository.HandoffRepository, blobs storage.BlobStore, profile imaging.Profile, progress ProgressPublisher, now func() time.Time) DamageLedger {
	return &damageLedger{
		handoffs: handoffs,
		uploader: &photoUploader{blobs: blobs, profile: profile},
		progress: progress,
		now:      now,
	}
}

// Append validates the entry before anything is written. The ID and report time are
// assigned here when the caller left them empty.
func (l *damageLedger) Append(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, entry domain.DamageEntry) (*domain.DamageEntry, error) {
	logger.EnterMethod("damageLedger.Append", "kind", kind, "eventID", eventID, "type", entry.Type)

	if err := entry.Validate(); err != nil {
		logger.ExitMethodWithError("damageLedger.Append", err, "eventID", eventID)
		return nil, err
	}
	if _, err := openEvent(ctx, l.handoffs, userID, kind, eventID); err != nil {
		logger.ExitMethodWithError("damageLedger.Append", err, "eventID", eventID)
		return nil, err
	}
	if err := l.append(ctx, kind, eventID, &entry); err != nil {
		logger.ExitMethodWithError("damageLedger.Append", err, "eventID", eventID)
		return nil, err
	}
	logger.ExitMethod("damageLedger.Append", "eventID", eventID, "damageID", entry.ID)
	return &entry, nil
}

func (l *damageLedger) append(ctx context.Context, kind domain.HandoffKind, eventID string, entry *domain.DamageEntry) error {
	now := l.now()
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		entry.ID = id.String()
	}
	if entry.ReportedAt.IsZero() {
		entry.ReportedAt = now
	}
	if err := l.handoffs.AppendDamage(ctx, kind, eventID, *entry); err != nil {
		return err
	}
	publishStage(ctx, l.handoffs, l.progress, kind, eventID, "damage_reported", now)
	return nil
}

// Report checks the text fields, uploads the photo and appends the entry.
func (l *damageLedger) Report(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, report DamageReport) (*domain.DamageEntry, error) {
	logger.EnterMethod("damageLedger.Report", "kind", kind, "eventID", eventID, "type", report.Type)

	entry := domain.DamageEntry{
		Location: strings.TrimSpace(report.Location),
		Type:     report.Type,
		Severity: report.Severity,
		Notes:    strings.TrimSpace(report.Notes),
		Photo:    report.Photo.Path,
	}
	if err := entry.Validate(); err != nil {
		logger.ExitMethodWithError("damageLedger.Report", err, "eventID", eventID)
		return nil, err
	}
	if _, err := openEvent(ctx, l.handoffs, userID, kind, eventID); err != nil {
		logger.ExitMethodWithError("damageLedger.Report", err, "eventID", eventID)
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	entry.ID = id.String()
	key := fmt.Sprintf("%s/%s/damages/%s.jpg", kind.Collection(), eventID, entry.ID)
	url, err := l.uploader.upload(ctx, key, report.Photo)
	if err != nil {
		logger.ExitMethodWithError("damageLedger.Report", err, "eventID", eventID)
		return nil, err
	}
	entry.Photo = url

	if err := l.append(ctx, kind, eventID, &entry); err != nil {
		l.uploader.discard(ctx, key)
		logger.ExitMethodWithError("damageLedger.Report", err, "eventID", eventID)
		return nil, err
	}
	logger.ExitMethod("damageLedger.Report", "eventID", eventID, "damageID", entry.ID)
	return &entry, nil
}

// PriorDamages lists the damages reported on the vehicle's completed check-ins, newest
// first, leaving out excludingEventID.
func (l *damageLedger) PriorDamages(ctx context.Context, vehicleID, excludingEventID string) ([]domain.PriorDamage, error) {
	events, err := l.handoffs.ListCompletedByVehicle(ctx, domain.HandoffKindCheckIn, vehicleID)
	if err != nil {
		return nil, err
	}
	out := []domain.PriorDamage{}
	for _, ev := range events {
		if ev.ID == excludingEventID {
			continue
		}
		var reportedOn time.Time
		if ev.CompletedAt != nil {
			reportedOn = *ev.CompletedAt
		}
		for i := len(ev.Damages) - 1; i >= 0; i-- {
			out = append(out, domain.PriorDamage{DamageEntry: ev.Damages[i], EventID: ev.ID, ReportedOn: reportedOn})
		}
	}
	return out, nil
}

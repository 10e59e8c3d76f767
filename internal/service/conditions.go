package service

import (
	"context"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

type conditionService struct {
	handoffs repository.HandoffRepository
	progress ProgressPublisher
	now      func() time.Time
}

func NewConditionService(handoffs repository.HandoffRepository, progress ProgressPublisher, now func() time.Time) ConditionService {
	return &conditionService{handoffs: handoffs, progress: progress, now: now}
}

// Save replaces the event's conditions wholesale.
func (s *conditionService) Save(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, c domain.Conditions) error {
	logger.EnterMethod("conditionService.Save", "kind", kind, "eventID", eventID, "odometer", c.Odometer, "fuelLevel", c.FuelLevel)

	if err := c.Validate(); err != nil {
		logger.ExitMethodWithError("conditionService.Save", err, "eventID", eventID)
		return err
	}
	if _, err := openEvent(ctx, s.handoffs, userID, kind, eventID); err != nil {
		logger.ExitMethodWithError("conditionService.Save", err, "eventID", eventID)
		return err
	}
	if err := s.handoffs.Patch(ctx, kind, eventID, domain.HandoffPatch{Conditions: &c}); err != nil {
		logger.ExitMethodWithError("conditionService.Save", err, "eventID", eventID)
		return err
	}

	publishStage(ctx, s.handoffs, s.progress, kind, eventID, "conditions_saved", s.now())
	logger.ExitMethod("conditionService.Save", "eventID", eventID)
	return nil
}

// Skip moves past the conditions stage leaving conditions null. Reconciliation then
// reports the usage deltas as unknown.
func (s *conditionService) Skip(ctx context.Context, userID string, kind domain.HandoffKind, eventID string) error {
	logger.EnterMethod("conditionService.Skip", "kind", kind, "eventID", eventID)

	if _, err := openEvent(ctx, s.handoffs, userID, kind, eventID); err != nil {
		logger.ExitMethodWithError("conditionService.Skip", err, "eventID", eventID)
		return err
	}
	skipped := true
	if err := s.handoffs.Patch(ctx, kind, eventID, domain.HandoffPatch{ConditionsSkipped: &skipped}); err != nil {
		logger.ExitMethodWithError("conditionService.Skip", err, "eventID", eventID)
		return err
	}

	publishStage(ctx, s.handoffs, s.progress, kind, eventID, "conditions_skipped", s.now())
	logger.ExitMethod("conditionService.Skip", "eventID", eventID)
	return nil
}

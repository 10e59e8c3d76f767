package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

// HandoffView is an event together with the stage the capture flow should show next.
type HandoffView struct {
	Event    *domain.HandoffEvent `json:"event"`
	Progress domain.Progress      `json:"progress"`
	// Resumed is set when Start found an unfinished event instead of creating one.
	Resumed bool `json:"resumed,omitempty"`
}

func viewOf(ev *domain.HandoffEvent) *HandoffView {
	return &HandoffView{Event: ev, Progress: domain.ProgressOf(ev)}
}

type FinalizeResult struct {
	Event       *domain.HandoffEvent `json:"event"`
	Reservation *domain.Reservation  `json:"reservation"`
	// Settlement is only set for check-outs.
	Settlement *domain.Settlement `json:"settlement,omitempty"`
}

// StageInput is the data of one capture stage. The set of implementations is closed.
type StageInput interface {
	stage() domain.Stage
}

type PhotoCapture struct {
	Slot   domain.PhotoSlot
	Source Source
}

// PhotosSkip moves on with missing photos.
type PhotosSkip struct{}

type ConditionsSave struct {
	Conditions domain.Conditions
}

type ConditionsSkip struct{}

type DamageAdd struct {
	Report DamageReport
}

// DamagesDone closes the optional damage stage, with or without entries.
type DamagesDone struct{}

type SignatureAdd struct {
	Signature domain.SignatureUpdate
}

type KeysExchange struct {
	Exchanged bool
}

func (PhotoCapture) stage() domain.Stage   { return domain.StagePhotosPending }
func (PhotosSkip) stage() domain.Stage     { return domain.StagePhotosPending }
func (ConditionsSave) stage() domain.Stage { return domain.StageConditionsPending }
func (ConditionsSkip) stage() domain.Stage { return domain.StageConditionsPending }
func (DamageAdd) stage() domain.Stage      { return domain.StageDamagesPending }
func (DamagesDone) stage() domain.Stage    { return domain.StageDamagesPending }
func (SignatureAdd) stage() domain.Stage   { return domain.StageSignaturePending }
func (KeysExchange) stage() domain.Stage   { return domain.StageSignaturePending }

type handoffService struct {
	store      *repository.Store
	evidence   EvidenceService
	conditions ConditionService
	damages    DamageLedger
	lifecycle  LifecycleController
	progress   ProgressPublisher
	announcer  *Announcer
	now        func() time.Time
}

func NewHandoffService(
	store *repository.Store,
	evidence EvidenceService,
	conditions ConditionService,
	damages DamageLedger,
	lifecycle LifecycleController,
	progress ProgressPublisher,
	announcer *Announcer,
	now func() time.Time,
) HandoffService {
	return &handoffService{
		store:      store,
		evidence:   evidence,
		conditions: conditions,
		damages:    damages,
		lifecycle:  lifecycle,
		progress:   progress,
		announcer:  announcer,
		now:        now,
	}
}

// checkStartable enforces the reservation preconditions of a hand-off kind.
func checkStartable(tx repository.Tx, kind domain.HandoffKind, r *domain.Reservation) error {
	switch kind {
	case domain.HandoffKindCheckIn:
		if r.Status != domain.ReservationStatusConfirmed && r.Status != domain.ReservationStatusActive {
			return fmt.Errorf("%w: check-in needs a confirmed reservation, %s is %s", domain.ErrValidation, r.ID, r.Status)
		}
	case domain.HandoffKindCheckOut:
		if r.Status != domain.ReservationStatusActive {
			return fmt.Errorf("%w: check-out needs an active reservation, %s is %s", domain.ErrValidation, r.ID, r.Status)
		}
		ci, err := tx.GetHandoff(domain.HandoffKindCheckIn, checkInID(r))
		if isNotFound(err) {
			return domain.ErrCheckInNotComplete
		}
		if err != nil {
			return err
		}
		if !ci.IsCompleted() {
			return domain.ErrCheckInNotComplete
		}
	}
	return nil
}

// Start creates the reservation's event of this kind, or resumes the unfinished one.
// The check and the create share one transaction so two devices cannot both create.
func (s *handoffService) Start(ctx context.Context, userID string, kind domain.HandoffKind, reservationID string) (*HandoffView, error) {
	logger.EnterMethod("handoffService.Start", "kind", kind, "reservationID", reservationID, "userID", userID)

	eventID := kind.EventID(reservationID)
	var (
		ev      *domain.HandoffEvent
		resumed bool
	)
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		ev, resumed = nil, false
		r, err := tx.GetReservation(reservationID)
		if err != nil {
			return err
		}
		if !r.IsParty(userID) {
			return fmt.Errorf("%w: user is not a party of reservation %s", domain.ErrPermissionDenied, reservationID)
		}

		existing, err := tx.GetHandoff(kind, eventID)
		switch {
		case err == nil:
			if existing.IsCompleted() {
				return domain.ErrAlreadyCompleted
			}
			ev, resumed = existing, true
			return nil
		case !isNotFound(err):
			return err
		}

		if err := checkStartable(tx, kind, r); err != nil {
			return err
		}
		ev = domain.NewHandoffEvent(kind, r, s.now())
		return tx.CreateHandoff(ev)
	})
	if errors.Is(err, domain.ErrDuplicate) && !errors.Is(err, domain.ErrAlreadyCompleted) {
		// lost a create race; the other device's event is the one to resume
		ev, err = s.store.Handoffs.GetByID(ctx, kind, eventID)
		resumed = true
	}
	if err != nil {
		logger.ExitMethodWithError("handoffService.Start", err, "reservationID", reservationID)
		return nil, err
	}

	if !resumed {
		publishStage(ctx, s.store.Handoffs, s.progress, kind, eventID, "started", s.now())
	}
	view := viewOf(ev)
	view.Resumed = resumed
	logger.ExitMethod("handoffService.Start", "eventID", eventID, "resumed", resumed, "stage", view.Progress.Stage)
	return view, nil
}

// Get returns the persisted event and the stage to resume at.
func (s *handoffService) Get(ctx context.Context, userID string, kind domain.HandoffKind, eventID string) (*HandoffView, error) {
	ev, err := partyEvent(ctx, s.store.Handoffs, userID, kind, eventID)
	if err != nil {
		return nil, err
	}
	return viewOf(ev), nil
}

// Advance persists one stage's data and returns the event with its next stage. Stages
// may be written in any order; each write is independent and retryable.
func (s *handoffService) Advance(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, input StageInput) (*HandoffView, error) {
	logger.EnterMethod("handoffService.Advance", "kind", kind, "eventID", eventID, "stage", input.stage())

	if err := s.advance(ctx, userID, kind, eventID, input); err != nil {
		logger.ExitMethodWithError("handoffService.Advance", err, "eventID", eventID)
		return nil, err
	}
	ev, err := s.store.Handoffs.GetByID(ctx, kind, eventID)
	if err != nil {
		logger.ExitMethodWithError("handoffService.Advance", err, "eventID", eventID)
		return nil, err
	}
	view := viewOf(ev)
	logger.ExitMethod("handoffService.Advance", "eventID", eventID, "next", view.Progress.Stage)
	return view, nil
}

func (s *handoffService) advance(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, input StageInput) error {
	switch in := input.(type) {
	case PhotoCapture:
		_, err := s.evidence.Capture(ctx, userID, kind, eventID, in.Slot, in.Source)
		return err
	case ConditionsSave:
		return s.conditions.Save(ctx, userID, kind, eventID, in.Conditions)
	case ConditionsSkip:
		return s.conditions.Skip(ctx, userID, kind, eventID)
	case DamageAdd:
		_, err := s.damages.Report(ctx, userID, kind, eventID, in.Report)
		return err
	case PhotosSkip:
		skipped := true
		return s.patch(ctx, userID, kind, eventID, domain.HandoffPatch{PhotosSkipped: &skipped}, "photos_skipped")
	case DamagesDone:
		reviewed := true
		return s.patch(ctx, userID, kind, eventID, domain.HandoffPatch{DamagesReviewed: &reviewed}, "damages_reviewed")
	case SignatureAdd:
		if err := validateSignature(in.Signature); err != nil {
			return err
		}
		sig := in.Signature
		return s.patch(ctx, userID, kind, eventID, domain.HandoffPatch{Signature: &sig}, "signature_added")
	case KeysExchange:
		exchanged := in.Exchanged
		return s.patch(ctx, userID, kind, eventID, domain.HandoffPatch{KeysExchanged: &exchanged}, "keys_exchanged")
	}
	return fmt.Errorf("%w: unsupported stage input %T", domain.ErrValidation, input)
}

func (s *handoffService) patch(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, p domain.HandoffPatch, action string) error {
	if _, err := openEvent(ctx, s.store.Handoffs, userID, kind, eventID); err != nil {
		return err
	}
	if err := s.store.Handoffs.Patch(ctx, kind, eventID, p); err != nil {
		return err
	}
	publishStage(ctx, s.store.Handoffs, s.progress, kind, eventID, action, s.now())
	return nil
}

func validateSignature(sig domain.SignatureUpdate) error {
	if _, err := domain.ParseSignatureRole(string(sig.Role)); err != nil {
		return err
	}
	if strings.TrimSpace(sig.Data) == "" {
		return fmt.Errorf("%w: signature is required", domain.ErrValidation)
	}
	return nil
}

// Finalize is the only all-or-nothing step. It re-reads the event inside the transaction
// so it sees every stage write, then commits the event and the reservation together.
// Check-outs are reconciled against the completed check-in in the same pass.
func (s *handoffService) Finalize(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, sig domain.SignatureUpdate) (*FinalizeResult, error) {
	logger.EnterMethod("handoffService.Finalize", "kind", kind, "eventID", eventID, "role", sig.Role)

	if err := validateSignature(sig); err != nil {
		logger.ExitMethodWithError("handoffService.Finalize", err, "eventID", eventID)
		return nil, err
	}

	var result *FinalizeResult
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		result = nil
		ev, err := tx.GetHandoff(kind, eventID)
		if err != nil {
			return err
		}
		if !ev.IsParty(userID) {
			return fmt.Errorf("%w: user is not a party of %s", domain.ErrPermissionDenied, eventID)
		}
		if ev.IsCompleted() {
			return domain.ErrAlreadyCompleted
		}
		r, err := tx.GetReservation(ev.ReservationID)
		if err != nil {
			return err
		}
		var checkIn *domain.HandoffEvent
		if kind == domain.HandoffKindCheckOut {
			checkIn, err = tx.GetHandoff(domain.HandoffKindCheckIn, checkInID(r))
			if isNotFound(err) {
				return domain.ErrCheckInNotComplete
			}
			if err != nil {
				return err
			}
			if !checkIn.IsCompleted() {
				return domain.ErrCheckInNotComplete
			}
		}

		fin := domain.Finalization{Signature: sig, CompletedAt: s.now()}
		final := ev.Clone()
		fin.ApplyTo(final)
		if err := final.CanFinalize(); err != nil {
			return err
		}
		if err := tx.FinalizeHandoff(kind, eventID, fin); err != nil {
			return err
		}

		result = &FinalizeResult{Event: final}
		updated := *r
		switch kind {
		case domain.HandoffKindCheckIn:
			err = s.lifecycle.ActivateFromCheckIn(tx, r, final)
			updated.Status, updated.CheckInID = domain.ReservationStatusActive, final.ID
		case domain.HandoffKindCheckOut:
			result.Settlement = domain.Reconcile(r, checkIn, final)
			err = s.lifecycle.CompleteFromCheckOut(tx, r, final)
			updated.Status, updated.CheckOutID = domain.ReservationStatusCompleted, final.ID
		}
		result.Reservation = &updated
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("handoffService.Finalize", err, "eventID", eventID)
		return nil, err
	}

	publishStage(ctx, s.store.Handoffs, s.progress, kind, eventID, "completed", s.now())
	if s.announcer != nil {
		s.announcer.HandoffCompleted(ctx, userID, result.Event, result.Reservation, result.Settlement)
	}
	logger.ExitMethod("handoffService.Finalize", "eventID", eventID, "reservationStatus", result.Reservation.Status)
	return result, nil
}

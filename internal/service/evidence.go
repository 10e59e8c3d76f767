package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/imaging"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
	"vehirent-backend/internal/storage"
)

// Source is a captured image waiting in a local temporary file.
type Source struct {
	Path string
	// Platform is the capturing client's platform; constrained platforms get a lower JPEG quality.
	Platform string
}

// photoUploader normalizes a captured image and stores it as a blob.
type photoUploader struct {
	blobs   storage.BlobStore
	profile imaging.Profile
}

// upload returns the blob URL. A denied or missing source is ErrCapturePermission and
// an undecodable image is a validation error. Other read or upload failures are ErrUnavailable.
func (u *photoUploader) upload(ctx context.Context, key string, src Source) (string, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", domain.ErrCapturePermission, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	data, err := imaging.Normalize(f, u.profile.For(src.Platform))
	f.Close()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	url, err := u.blobs.Upload(ctx, key, imaging.ContentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	if err := os.Remove(src.Path); err != nil {
		logger.Warn("Failed to delete temporary capture", "path", src.Path, "error", err)
	}
	return url, nil
}

func (u *photoUploader) discard(ctx context.Context, key string) {
	if err := u.blobs.Delete(ctx, key); err != nil {
		logger.Warn("Failed to delete orphaned upload", "key", key, "error", err)
	}
}

type evidenceService struct {
	handoffs repository.HandoffRepository
	uploader *photoUploader
	progress ProgressPublisher
	now      func() time.Time
}

func NewEvidenceService(handoffs repository.HandoffRepository, blobs storage.BlobStore, profile imaging.Profile, progress ProgressPublisher, now func() time.Time) EvidenceService {
	return &evidenceService{
		handoffs: handoffs,
		uploader: &photoUploader{blobs: blobs, profile: profile},
		progress: progress,
		now:      now,
	}
}

func photoKey(kind domain.HandoffKind, eventID string, slot domain.PhotoSlot, at time.Time) string {
	return fmt.Sprintf("%s/%s/photos/%s-%d.jpg", kind.Collection(), eventID, slot, at.UnixNano())
}

// Capture uploads the slot photo and records its URL. The mapping only changes once
// the upload succeeded, so a failure leaves the previous URL in place.
func (s *evidenceService) Capture(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, slot domain.PhotoSlot, src Source) (string, error) {
	logger.EnterMethod("evidenceService.Capture", "kind", kind, "eventID", eventID, "slot", slot)

	if err := domain.ValidateSlot(kind, slot); err != nil {
		logger.ExitMethodWithError("evidenceService.Capture", err)
		return "", err
	}
	if _, err := openEvent(ctx, s.handoffs, userID, kind, eventID); err != nil {
		logger.ExitMethodWithError("evidenceService.Capture", err, "eventID", eventID)
		return "", err
	}

	key := photoKey(kind, eventID, slot, s.now())
	url, err := s.uploader.upload(ctx, key, src)
	if err != nil {
		logger.ExitMethodWithError("evidenceService.Capture", err, "eventID", eventID, "slot", slot)
		return "", err
	}

	if err := s.handoffs.Patch(ctx, kind, eventID, domain.HandoffPatch{
		Photo: &domain.PhotoUpdate{Slot: slot, URL: url},
	}); err != nil {
		s.uploader.discard(ctx, key)
		logger.ExitMethodWithError("evidenceService.Capture", err, "eventID", eventID, "slot", slot)
		return "", err
	}

	publishStage(ctx, s.handoffs, s.progress, kind, eventID, "photo_captured", s.now())
	logger.ExitMethod("evidenceService.Capture", "eventID", eventID, "slot", slot)
	return url, nil
}

// Retake replaces the slot photo. Prior photos are not kept.
func (s *evidenceService) Retake(ctx context.Context, userID string, kind domain.HandoffKind, eventID string, slot domain.PhotoSlot, src Source) (string, error) {
	return s.Capture(ctx, userID, kind, eventID, slot, src)
}

func (s *evidenceService) IsComplete(ctx context.Context, userID string, kind domain.HandoffKind, eventID string) (bool, error) {
	ev, err := partyEvent(ctx, s.handoffs, userID, kind, eventID)
	if err != nil {
		return false, err
	}
	return domain.PhotosComplete(kind, ev.Photos), nil
}

// publishStage re-reads the event and broadcasts its derived stage. Failures are logged only.
func publishStage(ctx context.Context, repo repository.HandoffRepository, progress ProgressPublisher, kind domain.HandoffKind, eventID, action string, at time.Time) {
	if progress == nil {
		return
	}
	ev, err := repo.GetByID(ctx, kind, eventID)
	if err != nil {
		logger.Warn("Failed to load event for progress update", "eventID", eventID, "error", err)
		return
	}
	if err := progress.Publish(ctx, domain.NewProgressEvent(ev, action, at)); err != nil {
		logger.Warn("Failed to publish progress", "eventID", eventID, "action", action, "error", err)
	}
}

package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/imaging"
	"vehirent-backend/internal/repository"
	"vehirent-backend/internal/repository/memory"
	"vehirent-backend/internal/service"
)

const (
	renterID      = "renter-1"
	ownerID       = "owner-1"
	strangerID    = "stranger-1"
	reservationID = "res-1"
	vehicleID     = "veh-1"
)

var (
	fixedNow  = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	signature = domain.SignatureUpdate{Role: domain.SignatureRoleRenter, Data: "data:image/png;base64,iVBORw0KGgo="}
)

// fakeBlobs is an in-memory blob store that can be told to fail uploads.
type fakeBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	failUpload error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (b *fakeBlobs) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUpload != nil {
		return "", b.failUpload
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.objects[key] = data
	return "https://blobs.test/" + key, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// recordingPublisher keeps every progress event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Action)
	}
	return out
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, token string, msg service.PushMessage) error {
	args := m.Called(ctx, token, msg)
	return args.Error(0)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendHandoffReceipt(ctx context.Context, to *domain.User, ev *domain.HandoffEvent, r *domain.Reservation, settlement *domain.Settlement) error {
	args := m.Called(ctx, to, ev, r, settlement)
	return args.Error(0)
}

func (m *MockEmailService) SendHandoffReminder(ctx context.Context, to *domain.User, ev *domain.HandoffEvent) error {
	args := m.Called(ctx, to, ev)
	return args.Error(0)
}

type fixture struct {
	store      *memory.Store
	repos      *repository.Store
	blobs      *fakeBlobs
	progress   *recordingPublisher
	push       *MockNotifier
	email      *MockEmailService
	evidence   service.EvidenceService
	conditions service.ConditionService
	damages    service.DamageLedger
	handoffs   service.HandoffService
	reconciler service.ReconciliationService
	reviews    service.ReviewService
}

func newFixture(t *testing.T, status domain.ReservationStatus) *fixture {
	t.Helper()
	now := func() time.Time { return fixedNow }

	store := memory.NewStore()
	store.SetClock(now)
	store.PutUser(&domain.User{ID: renterID, Name: "Ana", Email: "ana@example.com", FCMToken: "tok-renter"})
	store.PutUser(&domain.User{ID: ownerID, Name: "Bruno", Email: "bruno@example.com", FCMToken: "tok-owner"})
	store.PutReservation(&domain.Reservation{
		ID:        reservationID,
		VehicleID: vehicleID,
		RenterID:  renterID,
		OwnerID:   ownerID,
		Status:    status,
		StartDate: fixedNow,
		EndDate:   fixedNow.Add(72 * time.Hour),
		Vehicle:   domain.VehicleSnapshot{Make: "Toyota", Model: "Corolla", Year: 2021, DepositAmount: 300},
	})

	f := &fixture{
		store:    store,
		repos:    store.Repositories(),
		blobs:    newFakeBlobs(),
		progress: &recordingPublisher{},
		push:     new(MockNotifier),
		email:    new(MockEmailService),
	}
	f.push.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.email.On("SendHandoffReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	profile := imaging.Profile{MaxWidth: 32, Quality: 80, ConstrainedQuality: 60, ConstrainedPlatforms: []string{"android"}}
	f.evidence = service.NewEvidenceService(f.repos.Handoffs, f.blobs, profile, f.progress, now)
	f.conditions = service.NewConditionService(f.repos.Handoffs, f.progress, now)
	f.damages = service.NewDamageLedger(f.repos.Handoffs, f.blobs, profile, f.progress, now)
	f.handoffs = service.NewHandoffService(f.repos, f.evidence, f.conditions, f.damages,
		service.NewLifecycleController(), f.progress, service.NewAnnouncer(f.repos.Users, f.push, f.email), now)
	f.reconciler = service.NewReconciliationService(f.repos.Reservations, f.repos.Handoffs)
	f.reviews = service.NewReviewService(f.repos, now)
	return f
}

// source writes a small PNG to a temporary file, standing in for a camera capture.
func source(t *testing.T) service.Source {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, x%48, color.RGBA{200, 30, 30, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "capture.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return service.Source{Path: path, Platform: "ios"}
}

func conditions(odometer, fuel int) domain.Conditions {
	return domain.Conditions{
		Odometer:            odometer,
		FuelLevel:           fuel,
		ExteriorCleanliness: 4,
		InteriorCleanliness: 5,
		TiresCondition:      4,
		LightsWorking:       true,
		DocumentsPresent:    true,
	}
}

// completeCheckIn runs a full check-in through the services.
func (f *fixture) completeCheckIn(t *testing.T, c domain.Conditions) string {
	t.Helper()
	ctx := context.Background()
	view, err := f.handoffs.Start(ctx, renterID, domain.HandoffKindCheckIn, reservationID)
	require.NoError(t, err)
	id := view.Event.ID

	for _, in := range []service.StageInput{
		service.PhotosSkip{},
		service.ConditionsSave{Conditions: c},
		service.DamagesDone{},
	} {
		_, err = f.handoffs.Advance(ctx, renterID, domain.HandoffKindCheckIn, id, in)
		require.NoError(t, err)
	}
	_, err = f.handoffs.Finalize(ctx, renterID, domain.HandoffKindCheckIn, id, signature)
	require.NoError(t, err)
	return id
}

var errInjected = errors.New("injected failure")

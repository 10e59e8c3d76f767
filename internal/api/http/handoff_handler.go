package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/service"
)

// platformHeader names the capturing client's platform; it selects the JPEG quality.
const platformHeader = "X-Client-Platform"

const multipartMemory = 8 << 20

type HandoffHandler struct {
	handoffs   service.HandoffService
	damages    service.DamageLedger
	reconciler service.ReconciliationService
	maxUpload  int64
}

func NewHandoffHandler(handoffs service.HandoffService, damages service.DamageLedger, reconciler service.ReconciliationService, maxUploadBytes int64) *HandoffHandler {
	return &HandoffHandler{
		handoffs:   handoffs,
		damages:    damages,
		reconciler: reconciler,
		maxUpload:  maxUploadBytes,
	}
}

type handoffRequest struct {
	userID  string
	kind    domain.HandoffKind
	eventID string
}

// target resolves the caller and the {kind}/{eventId} path variables.
func target(r *http.Request) (handoffRequest, error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return handoffRequest{}, fmt.Errorf("%w: no authenticated user", domain.ErrPermissionDenied)
	}
	vars := mux.Vars(r)
	kind, err := domain.ParseHandoffKind(vars["kind"])
	if err != nil {
		return handoffRequest{}, err
	}
	return handoffRequest{userID: userID, kind: kind, eventID: vars["eventId"]}, nil
}

// Start handles POST /reservations/{reservationId}/handoffs/{kind}
func (h *HandoffHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, domain.ErrPermissionDenied)
		return
	}
	kind, err := domain.ParseHandoffKind(mux.Vars(r)["kind"])
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := h.handoffs.Start(r.Context(), userID, kind, mux.Vars(r)["reservationId"])
	if err != nil {
		respondError(w, err)
		return
	}
	status := http.StatusCreated
	if view.Resumed {
		status = http.StatusOK
	}
	respond(w, status, view)
}

// Get handles GET /handoffs/{kind}/{eventId}
func (h *HandoffHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := target(r)
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := h.handoffs.Get(r.Context(), req.userID, req.kind, req.eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (h *HandoffHandler) advance(w http.ResponseWriter, r *http.Request, input service.StageInput) {
	req, err := target(r)
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := h.handoffs.Advance(r.Context(), req.userID, req.kind, req.eventID, input)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

// CapturePhoto handles POST /handoffs/{kind}/{eventId}/photos/{slot} with a multipart "photo"
// part. Capturing an already filled slot replaces it.
func (h *HandoffHandler) CapturePhoto(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := h.receivePhoto(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	defer cleanup()
	h.advance(w, r, service.PhotoCapture{Slot: domain.PhotoSlot(mux.Vars(r)["slot"]), Source: src})
}

// SkipPhotos handles POST /handoffs/{kind}/{eventId}/photos/skip
func (h *HandoffHandler) SkipPhotos(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, service.PhotosSkip{})
}

// SaveConditions handles PUT /handoffs/{kind}/{eventId}/conditions
func (h *HandoffHandler) SaveConditions(w http.ResponseWriter, r *http.Request) {
	var c domain.Conditions
	if err := decode(r, &c); err != nil {
		respondError(w, err)
		return
	}
	h.advance(w, r, service.ConditionsSave{Conditions: c})
}

// SkipConditions handles POST /handoffs/{kind}/{eventId}/conditions/skip
func (h *HandoffHandler) SkipConditions(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, service.ConditionsSkip{})
}

// ReportDamage handles POST /handoffs/{kind}/{eventId}/damages with multipart fields
// location, type, severity, notes and a "photo" part.
func (h *HandoffHandler) ReportDamage(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := h.receivePhoto(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	defer cleanup()
	h.advance(w, r, service.DamageAdd{Report: service.DamageReport{
		Location: r.FormValue("location"),
		Type:     domain.DamageType(r.FormValue("type")),
		Severity: domain.DamageSeverity(r.FormValue("severity")),
		Notes:    r.FormValue("notes"),
		Photo:    src,
	}})
}

// FinishDamages handles POST /handoffs/{kind}/{eventId}/damages/done
func (h *HandoffHandler) FinishDamages(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, service.DamagesDone{})
}

// ExchangeKeys handles PUT /handoffs/{kind}/{eventId}/keys
func (h *HandoffHandler) ExchangeKeys(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Exchanged bool `json:"exchanged"`
	}
	if err := decode(r, &body); err != nil {
		respondError(w, err)
		return
	}
	h.advance(w, r, service.KeysExchange{Exchanged: body.Exchanged})
}

type signatureRequest struct {
	Role string `json:"role"`
	Data string `json:"data"`
}

func (s signatureRequest) update() domain.SignatureUpdate {
	return domain.SignatureUpdate{Role: domain.SignatureRole(s.Role), Data: s.Data}
}

// AddSignature handles POST /handoffs/{kind}/{eventId}/signatures
func (h *HandoffHandler) AddSignature(w http.ResponseWriter, r *http.Request) {
	var body signatureRequest
	if err := decode(r, &body); err != nil {
		respondError(w, err)
		return
	}
	h.advance(w, r, service.SignatureAdd{Signature: body.update()})
}

// Finalize handles POST /handoffs/{kind}/{eventId}/finalize
func (h *HandoffHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	req, err := target(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var body signatureRequest
	if err := decode(r, &body); err != nil {
		respondError(w, err)
		return
	}
	result, err := h.handoffs.Finalize(r.Context(), req.userID, req.kind, req.eventID, body.update())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

// PriorDamages handles GET /handoffs/{kind}/{eventId}/prior-damages
func (h *HandoffHandler) PriorDamages(w http.ResponseWriter, r *http.Request) {
	req, err := target(r)
	if err != nil {
		respondError(w, err)
		return
	}
	view, err := h.handoffs.Get(r.Context(), req.userID, req.kind, req.eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	// A check-out compares against the vehicle's history, not its own check-in.
	exclude := domain.HandoffKindCheckIn.EventID(view.Event.ReservationID)
	damages, err := h.damages.PriorDamages(r.Context(), view.Event.VehicleID, exclude)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"damages": damages})
}

// Reconcile handles GET /reservations/{reservationId}/reconciliation
func (h *HandoffHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, domain.ErrPermissionDenied)
		return
	}
	settlement, err := h.reconciler.Reconcile(r.Context(), userID, mux.Vars(r)["reservationId"])
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, settlement)
}

// receivePhoto copies the multipart "photo" part to a temporary file. The returned
// cleanup removes the file if the service left it behind.
func (h *HandoffHandler) receivePhoto(w http.ResponseWriter, r *http.Request) (service.Source, func(), error) {
	noop := func() {}
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return service.Source{}, noop, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	part, _, err := r.FormFile("photo")
	if err != nil {
		return service.Source{}, noop, fmt.Errorf("%w: photo is required", domain.ErrValidation)
	}
	defer part.Close()

	path, err := spool(part)
	if err != nil {
		return service.Source{}, noop, err
	}
	platform := r.Header.Get(platformHeader)
	if platform == "" {
		platform = r.FormValue("platform")
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove spooled upload", "path", path, "error", err)
		}
	}
	return service.Source{Path: path, Platform: platform}, cleanup, nil
}

func spool(part multipart.File) (string, error) {
	f, err := os.CreateTemp("", "capture-*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, part); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

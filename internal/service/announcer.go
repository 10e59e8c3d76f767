package service

import (
	"context"
	"fmt"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
	"vehirent-backend/internal/repository"
)

// Announcer tells the parties about hand-off milestones. Every delivery is best-effort:
// failures are logged and never returned.
type Announcer struct {
	users repository.UserRepository
	push  Notifier
	email EmailService
}

func NewAnnouncer(users repository.UserRepository, push Notifier, email EmailService) *Announcer {
	return &Announcer{users: users, push: push, email: email}
}

func (a *Announcer) parties(ctx context.Context, ev *domain.HandoffEvent) []*domain.User {
	var out []*domain.User
	for _, id := range []string{ev.RenterID, ev.OwnerID} {
		u, err := a.users.GetByID(ctx, id)
		if err != nil {
			logger.Warn("Failed to load user for notification", "userID", id, "error", err)
			continue
		}
		out = append(out, u)
	}
	return out
}

func (a *Announcer) pushTo(ctx context.Context, u *domain.User, msg PushMessage) {
	if u.FCMToken == "" {
		return
	}
	if err := a.push.Send(ctx, u.FCMToken, msg); err != nil {
		logger.Warn("Failed to send push notification", "userID", u.ID, "error", err)
	}
}

// HandoffCompleted pushes to the party that did not finalize and mails a receipt to both.
func (a *Announcer) HandoffCompleted(ctx context.Context, finalizedBy string, ev *domain.HandoffEvent, r *domain.Reservation, settlement *domain.Settlement) {
	for _, u := range a.parties(ctx, ev) {
		if u.ID != finalizedBy {
			a.pushTo(ctx, u, PushMessage{
				Title: fmt.Sprintf("La %s fue completada", kindLabel(ev.Kind)),
				Body:  fmt.Sprintf("Reserva %s: revisa el comprobante en tu correo.", ev.ReservationID),
				Data: map[string]string{
					"type":          "handoff_completed",
					"kind":          string(ev.Kind),
					"eventId":       ev.ID,
					"reservationId": ev.ReservationID,
				},
			})
		}
		if err := a.email.SendHandoffReceipt(ctx, u, ev, r, settlement); err != nil {
			logger.Warn("Failed to send hand-off receipt", "userID", u.ID, "eventID", ev.ID, "error", err)
		}
	}
}

// HandoffReminder nudges both parties about an unfinished hand-off.
func (a *Announcer) HandoffReminder(ctx context.Context, ev *domain.HandoffEvent) {
	for _, u := range a.parties(ctx, ev) {
		a.pushTo(ctx, u, PushMessage{
			Title: fmt.Sprintf("Tienes una %s pendiente", kindLabel(ev.Kind)),
			Body:  "Abre la app para continuar donde la dejaste.",
			Data: map[string]string{
				"type":          "handoff_reminder",
				"kind":          string(ev.Kind),
				"eventId":       ev.ID,
				"reservationId": ev.ReservationID,
				"stage":         domain.DeriveStage(ev).String(),
			},
		})
		if err := a.email.SendHandoffReminder(ctx, u, ev); err != nil {
			logger.Warn("Failed to send hand-off reminder", "userID", u.ID, "eventID", ev.ID, "error", err)
		}
	}
}

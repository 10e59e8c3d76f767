package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
)

type EmailService interface {
	// SendHandoffReceipt mails a completed hand-off summary. settlement is nil for check-ins.
	SendHandoffReceipt(ctx context.Context, to *domain.User, ev *domain.HandoffEvent, r *domain.Reservation, settlement *domain.Settlement) error
	SendHandoffReminder(ctx context.Context, to *domain.User, ev *domain.HandoffEvent) error
}

type sendGridEmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &sendGridEmailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailService) send(ctx context.Context, to *domain.User, subject, body string) error {
	if to.Email == "" {
		return nil
	}
	logger.ExternalServiceCall("sendgrid", "send", "subject", subject)
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		subject,
		mail.NewEmail(to.Name, to.Email),
		body,
		"<p>"+strings.ReplaceAll(body, "\n", "<br>")+"</p>",
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *sendGridEmailService) SendHandoffReceipt(ctx context.Context, to *domain.User, ev *domain.HandoffEvent, r *domain.Reservation, settlement *domain.Settlement) error {
	subject, body := receiptText(to, ev, r, settlement)
	return s.send(ctx, to, subject, body)
}

func (s *sendGridEmailService) SendHandoffReminder(ctx context.Context, to *domain.User, ev *domain.HandoffEvent) error {
	subject, body := reminderText(to, ev)
	return s.send(ctx, to, subject, body)
}

func kindLabel(kind domain.HandoffKind) string {
	if kind == domain.HandoffKindCheckOut {
		return "devolución"
	}
	return "entrega"
}

func receiptText(to *domain.User, ev *domain.HandoffEvent, r *domain.Reservation, settlement *domain.Settlement) (string, string) {
	vehicle := strings.TrimSpace(fmt.Sprintf("%s %s", r.Vehicle.Make, r.Vehicle.Model))
	subject := fmt.Sprintf("Comprobante de %s: %s", kindLabel(ev.Kind), vehicle)

	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", to.Name)
	fmt.Fprintf(&b, "La %s del vehículo %s (reserva %s) fue completada.\n", kindLabel(ev.Kind), vehicle, r.ID)
	if ev.Conditions != nil {
		fmt.Fprintf(&b, "Odómetro: %d km. Combustible: %d%%.\n", ev.Conditions.Odometer, ev.Conditions.FuelLevel)
	}
	fmt.Fprintf(&b, "Fotos registradas: %d. Daños reportados: %d.\n", len(ev.Photos), len(ev.Damages))
	if settlement != nil {
		fmt.Fprintf(&b, "\nResumen: %s\n", settlement.Attestation)
	}
	b.WriteString("\nGracias por usar Vehirent.")
	return subject, b.String()
}

func reminderText(to *domain.User, ev *domain.HandoffEvent) (string, string) {
	subject := fmt.Sprintf("Tienes una %s pendiente", kindLabel(ev.Kind))
	body := fmt.Sprintf("Hola %s,\n\nLa %s de la reserva %s sigue sin completarse. Abre la app para continuar donde la dejaste.\n\nGracias por usar Vehirent.",
		to.Name, kindLabel(ev.Kind), ev.ReservationID)
	return subject, body
}

type noopEmailService struct{}

func NewNoopEmailService() EmailService { return noopEmailService{} }

func (noopEmailService) SendHandoffReceipt(ctx context.Context, to *domain.User, ev *domain.HandoffEvent, r *domain.Reservation, settlement *domain.Settlement) error {
	logger.Debug("Email disabled, dropping receipt", "eventID", ev.ID, "to", to.ID)
	return nil
}

func (noopEmailService) SendHandoffReminder(ctx context.Context, to *domain.User, ev *domain.HandoffEvent) error {
	logger.Debug("Email disabled, dropping reminder", "eventID", ev.ID, "to", to.ID)
	return nil
}

package service

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"vehirent-backend/internal/logger"
)

type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier delivers push notifications to one device token.
type Notifier interface {
	Send(ctx context.Context, token string, msg PushMessage) error
}

type fcmNotifier struct {
	client *messaging.Client
}

func NewFCMNotifier(client *messaging.Client) Notifier {
	return &fcmNotifier{client: client}
}

func (n *fcmNotifier) Send(ctx context.Context, token string, msg PushMessage) error {
	logger.ExternalServiceCall("fcm", "send", "title", msg.Title)
	badge := 1
	_, err := n.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:             "handoffs",
				Sound:                 "default",
				DefaultSound:          true,
				Priority:              messaging.PriorityHigh,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:            "default",
					Badge:            &badge,
					ContentAvailable: true,
				},
			},
		},
	})
	logger.ExternalServiceResult("fcm", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, token string, msg PushMessage) error {
	logger.Debug("Push notifications disabled, dropping message", "title", msg.Title)
	return nil
}

func NewNoopNotifier() Notifier { return noopNotifier{} }

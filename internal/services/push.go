package services

import (
	"context"
	"fmt"

	"bucket-list-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Notification is a push message for one device
type Notification struct {
	DeviceToken string
	Title       string
	Body        string
	ChatID      string
	MessageID   string
}

// Pusher delivers push notifications to devices
type Pusher interface {
	Notify(ctx context.Context, n Notification) error
}

// NoopPusher discards notifications; used when push is disabled
type NoopPusher struct{}

// Notify implements Pusher
func (NoopPusher) Notify(ctx context.Context, n Notification) error {
	log.Debug().Str("chat_id", n.ChatID).Msg("Push disabled, notification skipped")
	return nil
}

// APNsConfig selects token (.p8) or certificate (.p12) authentication
type APNsConfig struct {
	KeyFile      string
	KeyID        string
	TeamID       string
	CertFile     string
	CertPassword string
	Topic        string
	Production   bool
}

// APNsPusher sends notifications through Apple Push Notification service
type APNsPusher struct {
	client  *apns2.Client
	topic   string
	metrics *metrics.Metrics
}

// NewAPNsPusher creates an APNs client from a signing key or a certificate
func NewAPNsPusher(cfg APNsConfig, m *metrics.Metrics) (*APNsPusher, error) {
	var client *apns2.Client
	switch {
	case cfg.KeyFile != "":
		authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
		}
		client = apns2.NewTokenClient(&token.Token{
			AuthKey: authKey,
			KeyID:   cfg.KeyID,
			TeamID:  cfg.TeamID,
		})
	case cfg.CertFile != "":
		cert, err := certificate.FromP12File(cfg.CertFile, cfg.CertPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
		}
		client = apns2.NewClient(cert)
	default:
		return nil, fmt.Errorf("%w: APNs needs key_file or cert_file", ErrInvalidInput)
	}

	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return newAPNsPusher(client, cfg.Topic, m), nil
}

func newAPNsPusher(client *apns2.Client, topic string, m *metrics.Metrics) *APNsPusher {
	return &APNsPusher{client: client, topic: topic, metrics: m}
}

// Notify implements Pusher
func (p *APNsPusher) Notify(ctx context.Context, n Notification) error {
	notification := &apns2.Notification{
		DeviceToken: n.DeviceToken,
		Topic:       p.topic,
		Payload: payload.NewPayload().
			AlertTitle(n.Title).
			AlertBody(n.Body).
			Sound("default").
			ThreadID(n.ChatID).
			Custom("chat_id", n.ChatID).
			Custom("message_id", n.MessageID),
	}

	res, err := p.client.PushWithContext(ctx, notification)
	if err != nil {
		p.metrics.PushNotifications.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	if !res.Sent() {
		p.metrics.PushNotifications.WithLabelValues("rejected").Inc()
		return fmt.Errorf("push notification rejected: %d %s", res.StatusCode, res.Reason)
	}

	p.metrics.PushNotifications.WithLabelValues("sent").Inc()
	log.Debug().
		Str("apns_id", res.ApnsID).
		Str("chat_id", n.ChatID).
		Msg("Push notification sent")
	return nil
}

package utils

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"google.golang.org/api/option"
)

const (
	notifyMaxRetries   = 3
	notifyInitialDelay = 500 * time.Millisecond
)

// Notifier is the capability interface for device push and SMS
// delivery. Both operations are fire-and-forget with bounded retries;
// the caller supplies the per-leg deadline via ctx.
type Notifier interface {
	Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error
	SMS(ctx context.Context, phoneNumber, body string) error
}

// FirebaseTwilioNotifier sends push via FCM and SMS via Twilio.
type FirebaseTwilioNotifier struct {
	fcmClient    *messaging.Client
	twilioClient *twilio.RestClient
	twilioNumber string
}

func NewFirebaseTwilioNotifier(firebaseCredentials, twilioSID, twilioToken, twilioNumber string) (*FirebaseTwilioNotifier, error) {
	opt := option.WithCredentialsFile(firebaseCredentials)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	fcmClient, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM client: %w", err)
	}

	twilioClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: twilioSID,
		Password: twilioToken,
	})

	return &FirebaseTwilioNotifier{
		fcmClient:    fcmClient,
		twilioClient: twilioClient,
		twilioNumber: twilioNumber,
	}, nil
}

func (n *FirebaseTwilioNotifier) Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
			},
		},
	}

	return withRetries(ctx, "push", func() error {
		_, err := n.fcmClient.Send(ctx, message)
		return err
	})
}

func (n *FirebaseTwilioNotifier) SMS(ctx context.Context, phoneNumber, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetFrom(n.twilioNumber)
	params.SetBody(body)

	return withRetries(ctx, "sms", func() error {
		_, err := n.twilioClient.Api.CreateMessage(params)
		return err
	})
}

func withRetries(ctx context.Context, leg string, send func() error) error {
	delay := notifyInitialDelay

	var err error
	for attempt := 1; attempt <= notifyMaxRetries; attempt++ {
		if err = send(); err == nil {
			return nil
		}

		if attempt == notifyMaxRetries {
			break
		}

		logrus.Warnf("%s delivery attempt %d failed: %v", leg, attempt, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s delivery failed after %d attempts: %w", leg, notifyMaxRetries, err)
}

// NoopNotifier is used when push/SMS credentials are not configured.
// Deliveries are logged and dropped.
type NoopNotifier struct{}

func (NoopNotifier) Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	logrus.Debugf("push notifier not configured, dropping push to %s", deviceToken)
	return nil
}

func (NoopNotifier) SMS(ctx context.Context, phoneNumber, body string) error {
	logrus.Debugf("sms notifier not configured, dropping sms to %s", phoneNumber)
	return nil
}

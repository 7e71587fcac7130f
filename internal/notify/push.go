package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
)

var ErrMissingVAPIDKeys = errors.New("VAPID public and private keys are required")

// SubscriptionStore is the persistence the push notifier needs.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context) ([]models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// VAPIDConfig identifies this server to push services.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string // mailto: or https: contact
	TTL        int
}

type sendFunc func(payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

// PushNotifier sends Web Push messages to every subscription following a
// vehicle. Subscriptions the push service reports as gone are removed.
type PushNotifier struct {
	store SubscriptionStore
	vapid VAPIDConfig
	send  sendFunc
}

func NewPushNotifier(store SubscriptionStore, vapid VAPIDConfig) (*PushNotifier, error) {
	if vapid.PublicKey == "" || vapid.PrivateKey == "" {
		return nil, ErrMissingVAPIDKeys
	}
	if vapid.TTL <= 0 {
		vapid.TTL = 24 * 60 * 60
	}
	return &PushNotifier{store: store, vapid: vapid, send: webpush.SendNotification}, nil
}

type pushPayload struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	VehicleID string            `json:"vehicleId"`
	Reminders []models.Reminder `json:"reminders"`
}

func (p *PushNotifier) Notify(ctx context.Context, vehicleID string, reminders []models.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	subs, err := p.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	payload, err := json.Marshal(pushPayload{
		Title:     summaryTitle(reminders),
		Body:      summaryBody(reminders),
		VehicleID: vehicleID,
		Reminders: reminders,
	})
	if err != nil {
		return err
	}

	var errs []error
	for i := range subs {
		sub := subs[i]
		if !sub.Wants(vehicleID) {
			continue
		}
		if err := p.deliver(ctx, sub, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *PushNotifier) deliver(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	resp, err := p.send(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Keys.Auth, P256dh: sub.Keys.P256dh},
	}, &webpush.Options{
		Subscriber:      p.vapid.Subject,
		VAPIDPublicKey:  p.vapid.PublicKey,
		VAPIDPrivateKey: p.vapid.PrivateKey,
		TTL:             p.vapid.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		log.WithField("endpoint", sub.Endpoint).Info("Push subscription expired, removing")
		if err := p.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.WithError(err).Warn("Failed to remove expired subscription")
		}
		return nil
	case resp.StatusCode >= 300:
		return fmt.Errorf("push to %s: status %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}

func summaryTitle(reminders []models.Reminder) string {
	name := reminders[0].VehicleName
	if name == "" {
		name = "Your vehicle"
	}
	return name + " needs attention"
}

func summaryBody(reminders []models.Reminder) string {
	if len(reminders) == 1 {
		return fmt.Sprintf("%s is %s", reminders[0].Title, describeStatus(reminders[0].Status))
	}
	return fmt.Sprintf("%s and %d more maintenance items are due", reminders[0].Title, len(reminders)-1)
}

func describeStatus(s models.TaskStatus) string {
	if s == models.StatusOverdue {
		return "overdue"
	}
	return "due soon"
}

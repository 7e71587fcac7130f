package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
)

const publishTimeout = 5 * time.Second

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Publisher is the subset of mqtt.Client used for reminders.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier publishes reminders as JSON to <prefix>/vehicles/<id>/reminders.
type MQTTNotifier struct {
	client Publisher
	prefix string
	qos    byte
}

func NewMQTTNotifier(client Publisher, prefix string) *MQTTNotifier {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "carmemo"
	}
	return &MQTTNotifier{client: client, prefix: prefix, qos: 1}
}

// ConnectMQTT dials the broker and waits for the connection.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return client, nil
}

func (n *MQTTNotifier) Topic(vehicleID string) string {
	return fmt.Sprintf("%s/vehicles/%s/reminders", n.prefix, vehicleID)
}

func (n *MQTTNotifier) Notify(ctx context.Context, vehicleID string, reminders []models.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	payload, err := json.Marshal(reminders)
	if err != nil {
		return err
	}

	topic := n.Topic(vehicleID)
	token := n.client.Publish(topic, n.qos, false, payload)

	select {
	case <-token.Done():
	case <-time.After(publishTimeout):
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}

	log.WithFields(log.Fields{
		"topic":     topic,
		"reminders": len(reminders),
	}).Debug("Published reminders")
	return nil
}

package geolocation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttTimeout = 10 * time.Second

// MQTTSource subscribes to fixes published on a per-map topic.
type MQTTSource struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSource(client mqtt.Client, topic string) *MQTTSource {
	return &MQTTSource{client: client, topic: topic}
}

// ConnectMQTT dials broker and blocks until the session is established.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(true)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("timed out connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", broker, err)
	}
	return client, nil
}

func (s *MQTTSource) Watch(_ context.Context, _ Options, emit func(Event)) (func(), error) {
	token := s.client.Subscribe(s.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		ev, err := DecodeMessage(msg.Payload())
		if err != nil {
			slog.Warn("Error decoding geolocation message", "topic", msg.Topic(), "error", err)
			return
		}
		emit(ev)
	})
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("timed out subscribing to %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}
	return func() {
		token := s.client.Unsubscribe(s.topic)
		if token.WaitTimeout(mqttTimeout) && token.Error() != nil {
			slog.Warn("Error unsubscribing from MQTT", "topic", s.topic, "error", token.Error())
		}
	}, nil
}

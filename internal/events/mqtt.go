package events

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/models"
)

const publishTimeout = 5 * time.Second

// mqttClient is the subset of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes JSON events to an MQTT broker.
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

// NewMQTTPublisher connects to brokerURL (e.g. tcp://localhost:1883).
func NewMQTTPublisher(brokerURL, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout: %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", err)
	}

	log.WithField("broker", brokerURL).Info("Connected to MQTT broker")
	return &MQTTPublisher{client: client, prefix: prefix}, nil
}

func (p *MQTTPublisher) publish(topic string, v interface{}) error {
	payload, err := encode(v)
	if err != nil {
		return err
	}
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish timeout on %s", topic)
	}
	return token.Error()
}

// PublishTelemetry publishes to <prefix>/units/<id>/telemetry.
func (p *MQTTPublisher) PublishTelemetry(_ context.Context, telemetry models.Telemetry) error {
	return p.publish(fmt.Sprintf("%s/units/%s/telemetry", p.prefix, telemetry.UnitID), telemetry)
}

// PublishSnapshot publishes to <prefix>/snapshot.
func (p *MQTTPublisher) PublishSnapshot(_ context.Context, snapshot models.FleetSnapshot) error {
	return p.publish(p.prefix+"/snapshot", snapshot)
}

// Close disconnects after letting in-flight messages drain.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

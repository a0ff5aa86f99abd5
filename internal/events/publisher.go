// Package events publishes unit telemetry and fleet snapshots to a message
// broker for downstream dashboards.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/models"
)

// Publisher emits telemetry and snapshot events.
type Publisher interface {
	PublishTelemetry(ctx context.Context, telemetry models.Telemetry) error
	PublishSnapshot(ctx context.Context, snapshot models.FleetSnapshot) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishTelemetry(context.Context, models.Telemetry) error { return nil }
func (Nop) PublishSnapshot(context.Context, models.FleetSnapshot) error { return nil }
func (Nop) Close() error { return nil }

// New builds the publisher selected by cfg.Broker.
func New(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Broker {
	case "", "none":
		return Nop{}, nil
	case "mqtt":
		p, err := NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.TopicPrefix)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "nats":
		p, err := NewNATSPublisher(cfg.NATSURL, cfg.TopicPrefix)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}

func encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

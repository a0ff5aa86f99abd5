package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/models"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher publishes JSON events to NATS subjects.
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

// NewNATSPublisher connects to url (e.g. nats://localhost:4222).
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("fleet-twin"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect error: %w", err)
	}
	log.WithField("url", url).Info("Connected to NATS")
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) publish(subject string, v interface{}) error {
	payload, err := encode(v)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, payload)
}

// PublishTelemetry publishes to <prefix>.units.<id>.telemetry.
func (p *NATSPublisher) PublishTelemetry(_ context.Context, telemetry models.Telemetry) error {
	return p.publish(fmt.Sprintf("%s.units.%s.telemetry", p.prefix, telemetry.UnitID), telemetry)
}

// PublishSnapshot publishes to <prefix>.snapshot.
func (p *NATSPublisher) PublishSnapshot(_ context.Context, snapshot models.FleetSnapshot) error {
	return p.publish(p.prefix+".snapshot", snapshot)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

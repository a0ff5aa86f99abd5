package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/models"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

// MockMQTTClient is a mock implementation of mqttClient
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

type recordingConn struct {
	subjects []string
	payloads [][]byte
	closed   bool
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *recordingConn) Close() { c.closed = true }

func TestMQTTPublisher_PublishTelemetry(t *testing.T) {
	client := new(MockMQTTClient)
	client.On("Publish", "fleet/units/abc/telemetry", byte(0), false, mock.MatchedBy(func(p []byte) bool {
		var tele models.Telemetry
		return json.Unmarshal(p, &tele) == nil && tele.UnitID == "abc" && tele.Battery == 42
	})).Return(doneToken{})

	p := &MQTTPublisher{client: client, prefix: "fleet"}
	err := p.PublishTelemetry(context.Background(), models.Telemetry{UnitID: "abc", Battery: 42})

	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestMQTTPublisher_PublishError(t *testing.T) {
	client := new(MockMQTTClient)
	client.On("Publish", "fleet/snapshot", byte(0), false, mock.Anything).Return(doneToken{err: errors.New("not connected")})
	client.On("Disconnect", uint(250)).Return()

	p := &MQTTPublisher{client: client, prefix: "fleet"}
	err := p.PublishSnapshot(context.Background(), models.FleetSnapshot{Total: 1})
	assert.Error(t, err)

	assert.NoError(t, p.Close())
	client.AssertExpectations(t)
}

func TestNATSPublisher_Subjects(t *testing.T) {
	conn := &recordingConn{}
	p := &NATSPublisher{conn: conn, prefix: "fleet"}

	require.NoError(t, p.PublishTelemetry(context.Background(), models.Telemetry{UnitID: "abc"}))
	require.NoError(t, p.PublishSnapshot(context.Background(), models.FleetSnapshot{
		Total:    2,
		ByStatus: map[models.Status]int{models.StatusAvailable: 2},
	}))
	require.NoError(t, p.Close())

	assert.Equal(t, []string{"fleet.units.abc.telemetry", "fleet.snapshot"}, conn.subjects)
	var snap models.FleetSnapshot
	require.NoError(t, json.Unmarshal(conn.payloads[1], &snap))
	assert.Equal(t, 2, snap.ByStatus[models.StatusAvailable])
	assert.True(t, conn.closed)
}

func TestNew(t *testing.T) {
	p, err := New(config.EventsConfig{Broker: "none"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)

	_, err = New(config.EventsConfig{Broker: "kafka"})
	assert.Error(t, err)
}

package adapters

import (
	"context"
	"somfy-to-mqtt/application"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMQTTClient) IsConnectionOpen() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMQTTClient) Connect() mqtt.Token {
	args := m.Called()
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	args := m.Called(topic, qos, callback)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	args := m.Called(filters, callback)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Unsubscribe(topics ...string) mqtt.Token {
	args := m.Called(topics)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	m.Called(topic, callback)
}

func (m *MockMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	args := m.Called()
	return args.Get(0).(mqtt.ClientOptionsReader)
}

var _ mqtt.Client = &MockMQTTClient{}

// MockToken completes immediately, only Error is recorded.
type MockToken struct {
	mock.Mock
}

func (m *MockToken) Wait() bool {
	return true
}

func (m *MockToken) WaitTimeout(time.Duration) bool {
	return true
}

func (m *MockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (m *MockToken) Error() error {
	args := m.Called()
	return args.Error(0)
}

var _ mqtt.Token = &MockToken{}

type testMessage struct {
	topic   string
	payload []byte
}

func (m testMessage) Duplicate() bool   { return false }
func (m testMessage) Qos() byte         { return 0 }
func (m testMessage) Retained() bool    { return false }
func (m testMessage) Topic() string     { return m.topic }
func (m testMessage) MessageID() uint16 { return 0 }
func (m testMessage) Payload() []byte   { return m.payload }
func (m testMessage) Ack()              {}

var _ mqtt.Message = testMessage{}

type MockCloudClient struct {
	mock.Mock
}

func (m *MockCloudClient) Login(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCloudClient) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCloudClient) Devices(ctx context.Context) ([]application.Device, error) {
	args := m.Called(ctx)

	var devices []application.Device
	if v := args.Get(0); v != nil {
		devices = v.([]application.Device)
	}
	return devices, args.Error(1)
}

func (m *MockCloudClient) DeviceStates(ctx context.Context, deviceURL string) ([]application.StateAttribute, error) {
	args := m.Called(ctx, deviceURL)

	var states []application.StateAttribute
	if v := args.Get(0); v != nil {
		states = v.([]application.StateAttribute)
	}
	return states, args.Error(1)
}

func (m *MockCloudClient) ExecuteCommand(ctx context.Context, deviceURL string, command application.Command) (string, error) {
	args := m.Called(ctx, deviceURL, command)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) FetchEvents(ctx context.Context) ([]application.Event, error) {
	args := m.Called(ctx)

	var events []application.Event
	if v := args.Get(0); v != nil {
		events = v.([]application.Event)
	}
	return events, args.Error(1)
}

var _ application.CloudClient = &MockCloudClient{}

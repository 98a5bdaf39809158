package application

import (
	"context"

	"github.com/stretchr/testify/mock"
)

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

func (m *MockCloudClient) Devices(ctx context.Context) ([]Device, error) {
	args := m.Called(ctx)

	var devices []Device
	if v := args.Get(0); v != nil {
		devices = v.([]Device)
	}
	return devices, args.Error(1)
}

func (m *MockCloudClient) DeviceStates(ctx context.Context, deviceURL string) ([]StateAttribute, error) {
	args := m.Called(ctx, deviceURL)

	var states []StateAttribute
	if v := args.Get(0); v != nil {
		states = v.([]StateAttribute)
	}
	return states, args.Error(1)
}

func (m *MockCloudClient) ExecuteCommand(ctx context.Context, deviceURL string, command Command) (string, error) {
	args := m.Called(ctx, deviceURL, command)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) FetchEvents(ctx context.Context) ([]Event, error) {
	args := m.Called(ctx)

	var events []Event
	if v := args.Get(0); v != nil {
		events = v.([]Event)
	}
	return events, args.Error(1)
}

var _ CloudClient = &MockCloudClient{}

type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, msg any) error {
	args := m.Called(topic, qos, retained, msg)
	return args.Error(0)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(msg MQTTMessage)) error {
	args := m.Called(topic, qos, handler)
	return args.Error(0)
}

func (m *MockMQTTClient) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMQTTClient) Disconnect() {
	m.Called()
}

func (m *MockMQTTClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMQTTClient) SetOnConnect(callback func()) {
	m.Called(callback)
}

func (m *MockMQTTClient) Status() MQTTStatus {
	args := m.Called()
	return args.Get(0).(MQTTStatus)
}

var _ MQTTClient = &MockMQTTClient{}

type testMessage struct {
	topic   string
	payload []byte
}

func (m testMessage) Topic() string   { return m.topic }
func (m testMessage) Payload() []byte { return m.payload }

// published returns the payloads passed to Publish, in call order, for the
// given topic.
func published(m *MockMQTTClient, topic string) [][]byte {
	var out [][]byte
	for _, call := range m.Calls {
		if call.Method != "Publish" || call.Arguments.String(0) != topic {
			continue
		}
		out = append(out, call.Arguments.Get(3).([]byte))
	}
	return out
}

var (
	screenA = Device{ID: "a", Label: "Screen A", ControllableName: "io:VerticalExteriorAwningIOComponent", UIClass: UIClassExteriorScreen, DeviceURL: "io://1234-5678-9012/1"}
	sensorB = Device{ID: "b", Label: "Sensor B", ControllableName: "io:LightIOSystemSensor", UIClass: UIClassLightSensor, DeviceURL: "io://1234-5678-9012/2"}
	screenC = Device{ID: "c", Label: "Screen C", ControllableName: "io:VerticalExteriorAwningIOComponent", UIClass: UIClassExteriorScreen, DeviceURL: "io://1234-5678-9012/3"}
	bridgeD = Device{ID: "d", Label: "Box", ControllableName: "internal:PodV2Component", UIClass: "Pod", DeviceURL: "internal://1234-5678-9012/pod/0"}
)

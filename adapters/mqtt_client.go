package adapters

import (
	"fmt"
	"somfy-to-mqtt/application"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	MQTTDefaultConnectTimeout    = 30 * time.Second
	MQTTDefaultPublishTimeout    = 5 * time.Second
	MQTTDefaultSubscribeTimeout  = 5 * time.Second
	MQTTDefaultDisconnectQuiesce = 1000 // milliseconds
)

var (
	ErrMQTTNotConnected     = fmt.Errorf("not connected")
	ErrMQTTConnectTimeout   = fmt.Errorf("connect timeout")
	ErrMQTTPublishTimeout   = fmt.Errorf("publish timeout")
	ErrMQTTSubscribeTimeout = fmt.Errorf("subscribe timeout")
)

type MQTTClientParams struct {
	ClientID string
	Username string
	Password string
	MQTTUrl  string

	ConnectTimeout   time.Duration
	PublishTimeout   time.Duration
	SubscribeTimeout time.Duration

	NewClientFunc func(options *mqtt.ClientOptions) mqtt.Client

	Log zerolog.Logger
}

func (m *MQTTClientParams) EnsureDefaults() {
	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = MQTTDefaultConnectTimeout
	}

	if m.PublishTimeout == 0 {
		m.PublishTimeout = MQTTDefaultPublishTimeout
	}

	if m.SubscribeTimeout == 0 {
		m.SubscribeTimeout = MQTTDefaultSubscribeTimeout
	}

	if m.NewClientFunc == nil {
		m.NewClientFunc = mqtt.NewClient
	}
}

type subscription struct {
	qos     byte
	handler mqtt.MessageHandler
}

type MQTTClient struct {
	params MQTTClientParams

	client mqtt.Client

	connected          uint64
	msgCount           uint64
	msgCountUpdateTime atomic.Pointer[time.Time]

	// subscriptions are replayed after a reconnect
	subscriptions map[string]subscription
	onConnect     func()
	mu            sync.RWMutex

	log zerolog.Logger
}

func NewMQTTClient(params MQTTClientParams) *MQTTClient {
	params.EnsureDefaults()

	m := &MQTTClient{
		params:        params,
		subscriptions: make(map[string]subscription),
		log:           params.Log,
	}
	m.client = m.newMqttClient()

	t := time.Unix(0, 0)
	m.msgCountUpdateTime.Store(&t)

	return m
}

func (m *MQTTClient) Connect() error {
	if atomic.LoadUint64(&m.connected) == 1 {
		return nil
	}

	tc := time.NewTimer(m.params.ConnectTimeout)
	defer tc.Stop()

	token := m.client.Connect()
	select {
	case <-tc.C:
		return ErrMQTTConnectTimeout
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	}

	atomic.StoreUint64(&m.connected, 1)
	return nil
}

func (m *MQTTClient) Disconnect() {
	m.client.Disconnect(MQTTDefaultDisconnectQuiesce)
	atomic.StoreUint64(&m.connected, 0)
}

func (m *MQTTClient) IsConnected() bool {
	if atomic.LoadUint64(&m.connected) == 0 {
		return false
	}
	return true
}

func (m *MQTTClient) Status() application.MQTTStatus {
	return application.MQTTStatus{
		MessageCount:      atomic.LoadUint64(&m.msgCount),
		LastTimePublished: *m.msgCountUpdateTime.Load(),
		Connected:         m.IsConnected(),
	}
}

func (m *MQTTClient) Publish(topic string, qos byte, retained bool, msg any) error {
	if !m.IsConnected() {
		return ErrMQTTNotConnected
	}

	tc := time.NewTimer(m.params.PublishTimeout)
	defer tc.Stop()

	token := m.client.Publish(topic, qos, retained, msg)
	select {
	case <-tc.C:
		return ErrMQTTPublishTimeout
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	}

	t := time.Now()
	m.msgCountUpdateTime.Store(&t)
	atomic.AddUint64(&m.msgCount, 1)
	return nil
}

func (m *MQTTClient) Subscribe(topic string, qos byte, handler func(msg application.MQTTMessage)) error {
	if !m.IsConnected() {
		return ErrMQTTNotConnected
	}

	h := func(client mqtt.Client, msg mqtt.Message) {
		handler(msg)
	}

	if err := m.subscribe(topic, qos, h); err != nil {
		return err
	}

	m.mu.Lock()
	m.subscriptions[topic] = subscription{qos: qos, handler: h}
	m.mu.Unlock()
	return nil
}

func (m *MQTTClient) subscribe(topic string, qos byte, h mqtt.MessageHandler) error {
	tc := time.NewTimer(m.params.SubscribeTimeout)
	defer tc.Stop()

	token := m.client.Subscribe(topic, qos, h)
	select {
	case <-tc.C:
		return ErrMQTTSubscribeTimeout
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}

func (m *MQTTClient) SubscriptionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// SetOnConnect registers a callback run after every successful (re)connect,
// once subscriptions have been restored.
func (m *MQTTClient) SetOnConnect(callback func()) {
	m.mu.Lock()
	m.onConnect = callback
	m.mu.Unlock()
}

func (m *MQTTClient) PublishHandler(client mqtt.Client, msg mqtt.Message) {
	m.log.Debug().Str("topic", msg.Topic()).Msg("unrouted message")
}

func (m *MQTTClient) OnConnect(client mqtt.Client) {
	m.log.Info().Msgf("connected")
	atomic.StoreUint64(&m.connected, 1)

	m.mu.RLock()
	subs := make(map[string]subscription, len(m.subscriptions))
	for topic, sub := range m.subscriptions {
		subs[topic] = sub
	}
	callback := m.onConnect
	m.mu.RUnlock()

	// paho runs OnConnect on its own goroutine, waiting here is fine
	for topic, sub := range subs {
		if err := m.subscribe(topic, sub.qos, sub.handler); err != nil {
			m.log.Warn().Err(err).Str("topic", topic).Msg("failed to restore subscription")
		}
	}

	if callback != nil {
		callback()
	}
}

func (m *MQTTClient) OnConnectionLost(client mqtt.Client, err error) {
	m.log.Info().Msgf("connect lost: %v", err)
	atomic.StoreUint64(&m.connected, 0)
}

func (m *MQTTClient) OnReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	m.log.Info().Msg("reconnecting")
}

func (m *MQTTClient) newMqttClient() mqtt.Client {
	opts := mqtt.NewClientOptions()

	opts.AddBroker(m.params.MQTTUrl)
	opts.SetClientID(m.params.ClientID)
	opts.SetUsername(m.params.Username)
	opts.SetPassword(m.params.Password)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(m.params.ConnectTimeout)

	opts.SetDefaultPublishHandler(m.PublishHandler)
	opts.OnConnect = m.OnConnect
	opts.OnConnectionLost = m.OnConnectionLost
	opts.OnReconnecting = m.OnReconnecting

	return m.params.NewClientFunc(opts)
}

var _ application.MQTTClient = &MQTTClient{}

package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSomfyToMQTTService(t *testing.T) {
	service, err := NewSomfyToMQTTService(SomfyToMQTTServiceParams{
		CloudClient: &MockCloudClient{},
		MQTTClient:  &MockMQTTClient{},
	})
	require.NoError(t, err)
	require.NotNil(t, service)
}

func TestNewSomfyToMQTTService_MissingClients(t *testing.T) {
	service, err := NewSomfyToMQTTService(SomfyToMQTTServiceParams{MQTTClient: &MockMQTTClient{}})
	require.Error(t, err)
	require.Nil(t, service)

	service, err = NewSomfyToMQTTService(SomfyToMQTTServiceParams{CloudClient: &MockCloudClient{}})
	require.Error(t, err)
	require.Nil(t, service)
}

func TestSomfyToMQTTService_Run(t *testing.T) {
	cloud := &MockCloudClient{}
	mClient := &MockMQTTClient{}
	mClock := clock.NewMock()

	var mu sync.Mutex
	handlers := map[string]func(MQTTMessage){}
	handlerFor := func(topic string) func(MQTTMessage) {
		mu.Lock()
		defer mu.Unlock()
		return handlers[topic]
	}

	var executed atomic.Int32
	states := []StateAttribute{
		{Name: StateClosure, Value: float64(10)},
		{Name: StateLuminance, Value: float64(300)},
	}

	cloud.On("Login", mock.Anything).Return(nil).Once()
	cloud.On("Devices", mock.Anything).Return([]Device{screenA, sensorB, bridgeD, screenC}, nil).Once()
	cloud.On("DeviceStates", mock.Anything, mock.Anything).Return(states, nil)
	cloud.On("FetchEvents", mock.Anything).Return(nil, nil)
	cloud.On("ExecuteCommand", mock.Anything, screenC.DeviceURL, Command{Name: CommandSetPosition, Parameters: []any{70}}).
		Run(func(args mock.Arguments) {
			executed.Add(1)
		}).Return("exec-1", nil).Once()
	cloud.On("Logout", mock.Anything).Return(nil).Once()

	mClient.On("Subscribe", mock.Anything, byte(0), mock.Anything).Run(func(args mock.Arguments) {
		mu.Lock()
		handlers[args.String(0)] = args.Get(2).(func(MQTTMessage))
		mu.Unlock()
	}).Return(nil)
	mClient.On("SetOnConnect", mock.Anything).Return().Once()
	mClient.On("Publish", mock.Anything, byte(0), false, mock.Anything).Return(nil)
	mClient.On("Status").Return(MQTTStatus{Connected: true})

	service, err := NewSomfyToMQTTService(SomfyToMQTTServiceParams{
		CloudClient:  cloud,
		MQTTClient:   mClient,
		PollInterval: time.Second,
		Clock:        mClock,
		Log:          zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	screenTopic := CommandTopic(CategoryExteriorScreen, 2)
	require.Eventually(t, func() bool {
		return handlerFor(DefaultControlTopic) != nil && handlerFor(screenTopic) != nil
	}, time.Second, time.Millisecond)

	handlerFor(screenTopic)(testMessage{topic: screenTopic, payload: []byte(`{"val":30}`)})

	require.Eventually(t, func() bool {
		mClock.Add(time.Second)
		return executed.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}

	assert.Len(t, published(mClient, InclusionTopic), 3)
	assert.NotEmpty(t, published(mClient, ReportTopic(CategoryExteriorScreen, 1)))
	assert.NotEmpty(t, published(mClient, ReportTopic(CategoryExteriorScreen, 2)))
	assert.NotEmpty(t, published(mClient, ReportTopic(CategoryLightSensor, 1)))

	cloud.AssertExpectations(t)
	mClient.AssertExpectations(t)
}

func TestSomfyToMQTTService_Run_AuthFailed(t *testing.T) {
	cloud := &MockCloudClient{}
	mClient := &MockMQTTClient{}

	cloud.On("Login", mock.Anything).Return(fmt.Errorf("%w: bad password", ErrAuthFailed)).Once()

	service, err := NewSomfyToMQTTService(SomfyToMQTTServiceParams{
		CloudClient: cloud,
		MQTTClient:  mClient,
		Log:         zerolog.Nop(),
	})
	require.NoError(t, err)

	err = service.Run(context.Background())
	require.ErrorIs(t, err, ErrAuthFailed)

	cloud.AssertExpectations(t)
	cloud.AssertNotCalled(t, "Devices", mock.Anything)
	cloud.AssertNotCalled(t, "Logout", mock.Anything)
	mClient.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSomfyToMQTTService_Run_DevicesFailed(t *testing.T) {
	cloud := &MockCloudClient{}
	mClient := &MockMQTTClient{}

	cloud.On("Login", mock.Anything).Return(nil).Once()
	cloud.On("Devices", mock.Anything).Return(nil, fmt.Errorf("internal")).Once()
	cloud.On("Logout", mock.Anything).Return(nil).Once()

	service, err := NewSomfyToMQTTService(SomfyToMQTTServiceParams{
		CloudClient: cloud,
		MQTTClient:  mClient,
		Log:         zerolog.Nop(),
	})
	require.NoError(t, err)

	err = service.Run(context.Background())
	require.Error(t, err)

	cloud.AssertExpectations(t)
}

package adapters

import (
	"context"
	"errors"
	"somfy-to-mqtt/application"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	RetryDefaultMaxRetries      = 3
	RetryDefaultInitialInterval = 500 * time.Millisecond
	RetryDefaultMaxInterval     = 5 * time.Second
)

type RetryingCloudClientParams struct {
	CloudClient application.CloudClient

	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// NewBackOff overrides the exponential policy built from the fields above.
	NewBackOff func() backoff.BackOff

	Log zerolog.Logger
}

func (r *RetryingCloudClientParams) EnsureDefaults() {
	if r.MaxRetries == 0 {
		r.MaxRetries = RetryDefaultMaxRetries
	}

	if r.InitialInterval == 0 {
		r.InitialInterval = RetryDefaultInitialInterval
	}

	if r.MaxInterval == 0 {
		r.MaxInterval = RetryDefaultMaxInterval
	}

	if r.NewBackOff == nil {
		maxRetries, initial, maxInterval := r.MaxRetries, r.InitialInterval, r.MaxInterval
		r.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = maxInterval
			b.MaxElapsedTime = 0
			return backoff.WithMaxRetries(b, maxRetries)
		}
	}
}

// RetryingCloudClient retries failed cloud calls with backoff. Authentication
// failures and context cancellation end the retries immediately.
type RetryingCloudClient struct {
	params RetryingCloudClientParams

	next application.CloudClient

	log zerolog.Logger
}

func NewRetryingCloudClient(params RetryingCloudClientParams) *RetryingCloudClient {
	params.EnsureDefaults()
	return &RetryingCloudClient{params: params, next: params.CloudClient, log: params.Log}
}

func (r *RetryingCloudClient) Login(ctx context.Context) error {
	return r.retry(ctx, "login", func() error {
		return r.next.Login(ctx)
	})
}

// Logout is best effort and not retried.
func (r *RetryingCloudClient) Logout(ctx context.Context) error {
	return r.next.Logout(ctx)
}

func (r *RetryingCloudClient) Devices(ctx context.Context) ([]application.Device, error) {
	var devices []application.Device
	err := r.retry(ctx, "devices", func() (err error) {
		devices, err = r.next.Devices(ctx)
		return err
	})
	return devices, err
}

func (r *RetryingCloudClient) DeviceStates(ctx context.Context, deviceURL string) ([]application.StateAttribute, error) {
	var states []application.StateAttribute
	err := r.retry(ctx, "device_states", func() (err error) {
		states, err = r.next.DeviceStates(ctx, deviceURL)
		return err
	})
	return states, err
}

func (r *RetryingCloudClient) ExecuteCommand(ctx context.Context, deviceURL string, command application.Command) (string, error) {
	var execID string
	err := r.retry(ctx, "execute_command", func() (err error) {
		execID, err = r.next.ExecuteCommand(ctx, deviceURL, command)
		return err
	})
	return execID, err
}

func (r *RetryingCloudClient) FetchEvents(ctx context.Context) ([]application.Event, error) {
	var events []application.Event
	err := r.retry(ctx, "fetch_events", func() (err error) {
		events, err = r.next.FetchEvents(ctx)
		return err
	})
	return events, err
}

func (r *RetryingCloudClient) retry(ctx context.Context, op string, f func() error) error {
	operation := func() error {
		err := f()
		if err == nil {
			return nil
		}
		if errors.Is(err, application.ErrAuthFailed) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		r.log.Warn().Err(err).Str("op", op).Dur("retry_in", wait).Msg("cloud call failed")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(r.params.NewBackOff(), ctx), notify)
}

var _ application.CloudClient = &RetryingCloudClient{}

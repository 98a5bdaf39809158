package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultStatusInterval = 30 * time.Second

type SomfyToMQTTService interface {
	Run(ctx context.Context) error
}

type SomfyToMQTTServiceParams struct {
	CloudClient CloudClient
	MQTTClient  MQTTClient

	ControlTopic   string
	PollInterval   time.Duration
	StatusInterval time.Duration
	Clock          clock.Clock

	Log zerolog.Logger
}

type somfyToMQTTService struct {
	params SomfyToMQTTServiceParams

	log zerolog.Logger
}

func NewSomfyToMQTTService(params SomfyToMQTTServiceParams) (SomfyToMQTTService, error) {
	if params.CloudClient == nil {
		return nil, fmt.Errorf("CloudClient is nil")
	}
	if params.MQTTClient == nil {
		return nil, fmt.Errorf("MQTTClient is nil")
	}
	if params.ControlTopic == "" {
		params.ControlTopic = DefaultControlTopic
	}
	if params.StatusInterval <= 0 {
		params.StatusInterval = DefaultStatusInterval
	}
	if params.Clock == nil {
		params.Clock = clock.New()
	}
	return &somfyToMQTTService{params: params, log: params.Log}, nil
}

func (t *somfyToMQTTService) Run(ctx context.Context) error {
	cloud := t.params.CloudClient

	if err := cloud.Login(ctx); err != nil {
		if errors.Is(err, ErrAuthFailed) {
			t.log.Error().Err(err).Msg("cloud login rejected")
		}
		return fmt.Errorf("login: %w", err)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cloud.Logout(logoutCtx); err != nil {
			t.log.Warn().Err(err).Msg("cloud logout failed")
		}
	}()

	registry, err := FetchRegistry(ctx, cloud)
	if err != nil {
		return err
	}
	t.logRegistry(registry)

	queue := NewCommandQueue()
	refresh := &RefreshFlag{}

	translator, err := NewTranslator(TranslatorParams{
		Registry:     registry,
		Queue:        queue,
		Refresh:      refresh,
		ControlTopic: t.params.ControlTopic,
		Log:          t.log.With().Str("module", "translator").Logger(),
	})
	if err != nil {
		return err
	}

	listener := NewListener(ListenerParams{
		Translator: translator,
		Log:        t.log.With().Str("module", "listener").Logger(),
	})

	inclusion, err := NewInclusionPublisher(InclusionPublisherParams{
		MQTTClient: t.params.MQTTClient,
		Handler:    listener.Deliver,
		Log:        t.log.With().Str("module", "inclusion").Logger(),
	})
	if err != nil {
		return err
	}

	syncLoop, err := NewSyncLoop(SyncLoopParams{
		CloudClient: cloud,
		MQTTClient:  t.params.MQTTClient,
		Registry:    registry,
		Queue:       queue,
		Refresh:     refresh,
		Inclusion:   inclusion,
		Clock:       t.params.Clock,
		Interval:    t.params.PollInterval,
		Log:         t.log.With().Str("module", "sync-loop").Logger(),
	})
	if err != nil {
		return err
	}

	if err := t.params.MQTTClient.Subscribe(t.params.ControlTopic, 0, listener.Deliver); err != nil {
		return fmt.Errorf("subscribe control topic: %w", err)
	}

	// re-announce devices after every broker reconnect
	t.params.MQTTClient.SetOnConnect(syncLoop.RequestInclusion)
	syncLoop.RequestInclusion()

	g, gctx := errgroup.WithContext(ctx)

	// bus message handler
	g.Go(func() error {
		return listener.Run(gctx)
	})

	// cloud polling and command execution
	g.Go(func() error {
		return syncLoop.Run(gctx)
	})

	// mqtt publish reporter
	g.Go(func() error {
		t.reportStatus(gctx)
		return nil
	})

	return g.Wait()
}

func (t *somfyToMQTTService) logRegistry(r *Registry) {
	for _, d := range r.Devices() {
		t.log.Info().
			Str("label", d.Label).
			Str("id", d.ID).
			Str("controllable_name", d.ControllableName).
			Str("ui_class", d.UIClass).
			Str("category", d.Category().String()).
			Msg("device found")
	}
	t.log.Info().
		Int("devices", len(r.Devices())).
		Int("recognized", len(r.Entries())).
		Msg("device registry loaded")
}

func (t *somfyToMQTTService) reportStatus(ctx context.Context) {
	ticker := t.params.Clock.Ticker(t.params.StatusInterval)
	defer ticker.Stop()

	lastStatus := t.params.MQTTClient.Status()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			newStatus := t.params.MQTTClient.Status()
			msgCountDiff := newStatus.MessageCount - lastStatus.MessageCount
			msgPerMin := msgCountDiff * uint64(time.Minute) / uint64(t.params.StatusInterval)

			t.log.Info().
				Uint64("msg_per_min", msgPerMin).
				Bool("is_connected", newStatus.Connected).
				Time("last_time_published", newStatus.LastTimePublished).
				Msg("publish report")

			lastStatus = newStatus
		}
	}
}

package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

const DefaultPollInterval = time.Second

type SyncLoopParams struct {
	CloudClient CloudClient
	MQTTClient  MQTTClient
	Registry    *Registry
	Queue       *CommandQueue
	Refresh     *RefreshFlag
	Inclusion   *InclusionPublisher

	Clock    clock.Clock
	Interval time.Duration

	Log zerolog.Logger
}

// SyncLoop is the single goroutine that talks to the cloud. Each tick runs
// the inclusion, refresh, command and event phases in that order.
type SyncLoop struct {
	params SyncLoopParams

	inclusionDue atomic.Bool

	log zerolog.Logger
}

func NewSyncLoop(params SyncLoopParams) (*SyncLoop, error) {
	if params.CloudClient == nil {
		return nil, fmt.Errorf("CloudClient is nil")
	}
	if params.MQTTClient == nil {
		return nil, fmt.Errorf("MQTTClient is nil")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("Registry is nil")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("Queue is nil")
	}
	if params.Refresh == nil {
		return nil, fmt.Errorf("Refresh is nil")
	}
	if params.Inclusion == nil {
		return nil, fmt.Errorf("Inclusion is nil")
	}
	if params.Clock == nil {
		params.Clock = clock.New()
	}
	if params.Interval <= 0 {
		params.Interval = DefaultPollInterval
	}
	return &SyncLoop{params: params, log: params.Log}, nil
}

// RequestInclusion schedules inclusion of every device at the start of the
// next tick. Safe to call from any goroutine.
func (s *SyncLoop) RequestInclusion() {
	s.inclusionDue.Store(true)
}

func (s *SyncLoop) Run(ctx context.Context) error {
	ticker := s.params.Clock.Ticker(s.params.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.params.Interval).Msg("sync loop started")
	defer s.log.Info().Msg("sync loop stopped")

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *SyncLoop) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if s.inclusionDue.Swap(false) {
		s.params.Inclusion.PublishAll(s.params.Registry)
		s.params.Refresh.Set()
	}

	if s.params.Refresh.Take() {
		s.RefreshAll(ctx)
	}

	if ctx.Err() != nil {
		return
	}
	s.DrainQueue(ctx)

	if ctx.Err() != nil {
		return
	}
	s.pollEvents(ctx)
}

// RefreshAll publishes a report for every recognized device, one device at a
// time. A device that fails is skipped.
func (s *SyncLoop) RefreshAll(ctx context.Context) {
	for _, e := range s.params.Registry.Entries() {
		if ctx.Err() != nil {
			return
		}

		if err := s.refreshDevice(ctx, e); err != nil {
			s.log.Error().Err(err).
				Str("device", e.Device.Label).
				Str("address", DeviceAddress(e.Category, e.Ordinal)).
				Msg("refresh failed")
		}
	}
}

func (s *SyncLoop) refreshDevice(ctx context.Context, e Entry) error {
	states, err := s.params.CloudClient.DeviceStates(ctx, e.Device.DeviceURL)
	if err != nil {
		return fmt.Errorf("fetch states: %w", err)
	}

	var report Report
	switch e.Category {
	case CategoryExteriorScreen:
		closure, err := intState(states, StateClosure)
		if err != nil {
			return err
		}
		report = ScreenReport(LevelFromClosure(closure))
	case CategoryLightSensor:
		lux, err := floatState(states, StateLuminance)
		if err != nil {
			return err
		}
		report = SensorReport(lux)
	default:
		return nil
	}

	return s.publishReport(e.Category, e.Ordinal, report)
}

// DrainQueue executes queued commands in FIFO order until the queue is
// empty. A command is removed before it is executed and never re-queued.
func (s *SyncLoop) DrainQueue(ctx context.Context) {
	for ctx.Err() == nil {
		cmd, ok := s.params.Queue.Pop()
		if !ok {
			return
		}

		execID, err := s.params.CloudClient.ExecuteCommand(ctx, cmd.DeviceURL, cmd.Command)
		if err != nil {
			s.log.Error().Err(err).
				Str("device_url", cmd.DeviceURL).
				Str("command", cmd.Command.Name).
				Msg("command failed")
			s.reportCommandFailure(cmd, err)
			continue
		}

		s.log.Info().
			Str("device_url", cmd.DeviceURL).
			Str("command", cmd.Command.Name).
			Interface("parameters", cmd.Command.Parameters).
			Str("exec_id", execID).
			Msg("command executed")
	}
}

func (s *SyncLoop) reportCommandFailure(cmd PendingCommand, cause error) {
	if cmd.Ordinal == 0 {
		return
	}
	if err := s.publishReport(CategoryExteriorScreen, cmd.Ordinal, ErrorReport(CategoryExteriorScreen, cause)); err != nil {
		s.log.Error().Err(err).Msg("failed to report command failure")
	}
}

// pollEvents fetches the cloud event feed. A state change only marks the
// refresh as due; it runs at the start of the next tick.
func (s *SyncLoop) pollEvents(ctx context.Context) {
	events, err := s.params.CloudClient.FetchEvents(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("fetch events failed")
		return
	}

	for _, ev := range events {
		s.log.Debug().Str("event", ev.Name).Str("device_url", ev.DeviceURL).Msg("cloud event")
		if ev.Name == EventDeviceStateChanged {
			s.params.Refresh.Set()
		}
	}
}

func (s *SyncLoop) publishReport(c Category, ordinal int, r Report) error {
	payload, err := EncodeReport(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	topic := ReportTopic(c, ordinal)
	if err := s.params.MQTTClient.Publish(topic, 0, false, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func intState(states []StateAttribute, name string) (int, error) {
	s, ok := findState(states, name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrStateMissing, name)
	}

	switch v := s.Value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s: unexpected value %v", name, s.Value)
	}
}

func floatState(states []StateAttribute, name string) (float64, error) {
	s, ok := findState(states, name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrStateMissing, name)
	}

	switch v := s.Value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%s: unexpected value %v", name, s.Value)
	}
}

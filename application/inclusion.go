package application

import (
	"fmt"

	"github.com/rs/zerolog"
)

type InclusionPublisherParams struct {
	MQTTClient MQTTClient
	// Handler receives messages on the subscribed screen command topics.
	Handler func(msg MQTTMessage)

	Log zerolog.Logger
}

type InclusionPublisher struct {
	params InclusionPublisherParams

	log zerolog.Logger
}

func NewInclusionPublisher(params InclusionPublisherParams) (*InclusionPublisher, error) {
	if params.MQTTClient == nil {
		return nil, fmt.Errorf("MQTTClient is nil")
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("Handler is nil")
	}
	return &InclusionPublisher{params: params, log: params.Log}, nil
}

// PublishInclusion announces the device on the inclusion topic and, for
// exterior screens, subscribes to its command topic. Calling it again for
// the same entry publishes the same bytes.
func (p *InclusionPublisher) PublishInclusion(e Entry) error {
	payload, err := EncodeInclusion(e)
	if err != nil {
		return fmt.Errorf("encode inclusion: %w", err)
	}

	if err := p.params.MQTTClient.Publish(InclusionTopic, 0, false, payload); err != nil {
		return fmt.Errorf("publish inclusion: %w", err)
	}

	if e.Category != CategoryExteriorScreen {
		return nil
	}

	topic := CommandTopic(e.Category, e.Ordinal)
	if err := p.params.MQTTClient.Subscribe(topic, 0, p.params.Handler); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// PublishAll includes every recognized device. It returns the number of
// devices that failed.
func (p *InclusionPublisher) PublishAll(r *Registry) int {
	failed := 0
	for _, e := range r.Entries() {
		if err := p.PublishInclusion(e); err != nil {
			failed++
			p.log.Error().Err(err).
				Str("device", e.Device.Label).
				Str("address", DeviceAddress(e.Category, e.Ordinal)).
				Msg("inclusion failed")
			continue
		}
		p.log.Info().
			Str("device", e.Device.Label).
			Str("address", DeviceAddress(e.Category, e.Ordinal)).
			Msg("device included")
	}
	return failed
}

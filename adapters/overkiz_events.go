package adapters

import (
	"context"
	"errors"
	"net/http"
	"somfy-to-mqtt/application"
	"strings"
)

type RegisterResponse struct {
	ID string `json:"id"`
}

type EventModel struct {
	Name      string       `json:"name"`
	DeviceURL string       `json:"deviceURL"`
	Timestamp int64        `json:"timestamp"`
	States    []StateModel `json:"deviceStates"`
}

// FetchEvents returns the events queued on the cloud since the previous
// fetch. The event listener is registered on first use and registered again
// after the cloud dropped it.
func (o *OverkizClient) FetchEvents(ctx context.Context) ([]application.Event, error) {
	listenerID, err := o.eventListener(ctx)
	if err != nil {
		return nil, err
	}

	var resp []EventModel
	err = o.do(ctx, http.MethodPost, "events/"+listenerID+"/fetch", nil, &resp)
	if err != nil {
		if isListenerExpired(err) {
			o.log.Warn().Str("listener_id", listenerID).Msg("event listener expired")
			o.mu.Lock()
			if o.listenerID == listenerID {
				o.listenerID = ""
			}
			o.mu.Unlock()
		}
		return nil, err
	}

	return overkizEventsToAppEvents(resp), nil
}

func (o *OverkizClient) eventListener(ctx context.Context) (string, error) {
	o.mu.Lock()
	id := o.listenerID
	o.mu.Unlock()
	if id != "" {
		return id, nil
	}

	var resp RegisterResponse
	if err := o.do(ctx, http.MethodPost, "events/register", nil, &resp); err != nil {
		return "", err
	}

	o.mu.Lock()
	o.listenerID = resp.ID
	o.mu.Unlock()

	o.log.Info().Str("listener_id", resp.ID).Msg("event listener registered")
	return resp.ID, nil
}

func isListenerExpired(err error) bool {
	var apiErr *OverkizError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "no registered event listener")
}

func overkizEventsToAppEvents(resp []EventModel) []application.Event {
	var events []application.Event
	for _, event := range resp {
		events = append(events, application.Event{
			Name:      event.Name,
			DeviceURL: event.DeviceURL,
		})
	}
	return events
}

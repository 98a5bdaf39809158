package application

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

const defaultInboxSize = 64

type BusMessage struct {
	Topic   string
	Payload []byte
}

type ListenerParams struct {
	Translator *Translator
	InboxSize  int

	Log zerolog.Logger
}

// Listener moves messages off the MQTT client's callback goroutine and feeds
// them, one at a time, to the translator.
type Listener struct {
	translator *Translator
	inbox      chan BusMessage
	done       chan struct{}

	log zerolog.Logger
}

func NewListener(params ListenerParams) *Listener {
	if params.InboxSize <= 0 {
		params.InboxSize = defaultInboxSize
	}
	return &Listener{
		translator: params.Translator,
		inbox:      make(chan BusMessage, params.InboxSize),
		done:       make(chan struct{}),
		log:        params.Log,
	}
}

// Deliver is the MQTT message handler. It blocks while the inbox is full and
// drops the message once the listener has stopped.
func (l *Listener) Deliver(msg MQTTMessage) {
	m := BusMessage{Topic: msg.Topic(), Payload: append([]byte(nil), msg.Payload()...)}

	select {
	case l.inbox <- m:
	case <-l.done:
		l.log.Debug().Str("topic", m.Topic).Msg("listener stopped, message dropped")
	}
}

func (l *Listener) Run(ctx context.Context) error {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-l.inbox:
			l.handle(m)
		}
	}
}

func (l *Listener) handle(m BusMessage) {
	l.log.Debug().Str("topic", m.Topic).Bytes("payload", m.Payload).Msg("message received")

	var pc panics.Catcher
	pc.Try(func() {
		l.translator.Handle(m.Topic, m.Payload)
	})
	if r := pc.Recovered(); r != nil {
		l.log.Error().Str("topic", m.Topic).Str("panic", r.String()).Msg("message handler panicked")
	}
}

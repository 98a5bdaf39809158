package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const levelCommandSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["val"],
	"properties": {
		"val": {"type": "integer", "minimum": 0, "maximum": 100}
	}
}`

type TranslatorParams struct {
	Registry     *Registry
	Queue        *CommandQueue
	Refresh      *RefreshFlag
	ControlTopic string

	Log zerolog.Logger
}

// Translator turns inbound bus messages into pending cloud commands or
// refresh requests.
type Translator struct {
	params TranslatorParams
	schema *jsonschema.Schema

	log zerolog.Logger
}

func NewTranslator(params TranslatorParams) (*Translator, error) {
	if params.Registry == nil {
		return nil, fmt.Errorf("Registry is nil")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("Queue is nil")
	}
	if params.Refresh == nil {
		return nil, fmt.Errorf("Refresh is nil")
	}
	if params.ControlTopic == "" {
		params.ControlTopic = DefaultControlTopic
	}

	schema, err := compileSchema("level_command.json", levelCommandSchema)
	if err != nil {
		return nil, err
	}

	return &Translator{params: params, schema: schema, log: params.Log}, nil
}

func (t *Translator) Handle(topic string, payload []byte) {
	if topic == t.params.ControlTopic {
		t.log.Debug().Msg("refresh requested")
		t.params.Refresh.Set()
		return
	}

	cmd, err := t.Translate(topic, payload)
	if err != nil {
		t.log.Warn().Err(err).Str("topic", topic).Msg("dropping message")
		return
	}

	t.log.Debug().
		Str("device_url", cmd.DeviceURL).
		Interface("parameters", cmd.Command.Parameters).
		Msg("command queued")
	t.params.Queue.Push(cmd)
}

// Translate maps a screen command message to the cloud command it asks for.
func (t *Translator) Translate(topic string, payload []byte) (PendingCommand, error) {
	entry, ok := t.params.Registry.ScreenForCommandTopic(topic)
	if !ok {
		return PendingCommand{}, ErrUnknownTopic
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return PendingCommand{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if err := t.schema.Validate(doc); err != nil {
		return PendingCommand{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	// the schema accepts integral numbers written as 30.0, read val from doc
	level, err := levelValue(doc)
	if err != nil {
		return PendingCommand{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	return PendingCommand{
		DeviceURL: entry.Device.DeviceURL,
		Ordinal:   entry.Ordinal,
		Command: Command{
			Name:       CommandSetPosition,
			Parameters: []any{ClosureFromLevel(level)},
		},
	}, nil
}

func levelValue(doc any) (int, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("payload is not an object")
	}
	n, ok := obj["val"].(json.Number)
	if !ok {
		return 0, fmt.Errorf("val is not a number")
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func compileSchema(name, doc string) (*jsonschema.Schema, error) {
	v, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, v); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	return c.Compile(name)
}

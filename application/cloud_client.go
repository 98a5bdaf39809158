package application

import "context"

type Category int

const (
	CategoryUnsupported Category = iota
	CategoryExteriorScreen
	CategoryLightSensor
)

const (
	UIClassExteriorScreen = "ExteriorScreen"
	UIClassLightSensor    = "LightSensor"
)

func (c Category) String() string {
	switch c {
	case CategoryExteriorScreen:
		return UIClassExteriorScreen
	case CategoryLightSensor:
		return UIClassLightSensor
	default:
		return "Unsupported"
	}
}

// ClassifyUIClass maps a cloud ui class to a Category. Anything that is not
// explicitly recognized is CategoryUnsupported.
func ClassifyUIClass(uiClass string) Category {
	switch uiClass {
	case UIClassExteriorScreen:
		return CategoryExteriorScreen
	case UIClassLightSensor:
		return CategoryLightSensor
	default:
		return CategoryUnsupported
	}
}

type Device struct {
	ID               string
	Label            string
	ControllableName string
	UIClass          string
	DeviceURL        string
}

func (d Device) Category() Category {
	return ClassifyUIClass(d.UIClass)
}

const (
	StateClosure   = "core:ClosureState"
	StateLuminance = "core:LuminanceState"
)

type StateAttribute struct {
	Name  string
	Type  int
	Value any
}

const EventDeviceStateChanged = "DeviceStateChangedEvent"

type Event struct {
	Name      string
	DeviceURL string
}

const CommandSetPosition = "setPosition"

type Command struct {
	Name       string
	Parameters []any
}

type CloudClient interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	Devices(ctx context.Context) ([]Device, error)
	DeviceStates(ctx context.Context, deviceURL string) ([]StateAttribute, error)
	ExecuteCommand(ctx context.Context, deviceURL string, command Command) (string, error)
	FetchEvents(ctx context.Context) ([]Event, error)
}

func findState(states []StateAttribute, name string) (StateAttribute, bool) {
	for _, s := range states {
		if s.Name == name {
			return s, true
		}
	}
	return StateAttribute{}, false
}

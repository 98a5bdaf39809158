package application

import (
	"encoding/json"
	"fmt"
)

const (
	TopicPrefix         = "pt:j1"
	InclusionTopic      = "pt:j1/mt:evt/rt:ad/rn:somfy/ad:1"
	DefaultControlTopic = "pt:j1/mt:cmd/rt:ad/rn:somfy/ad:1"

	ServiceLevelSwitch     = "out_lvl_switch"
	ServiceSensorLuminance = "sensor_lumin"

	messageVersion = "1"
	reportSource   = "fh_somfy"
	adapterSource  = "fh-somfy"
	adapterName    = "somfy"
)

// ServiceAddress is the topic suffix shared by the command and report topics
// of a device, e.g. /rt:dev/rn:somfy/ad:1/sv:out_lvl_switch/ad:e1_0.
func ServiceAddress(c Category, ordinal int) string {
	return fmt.Sprintf("/rt:dev/rn:%s/ad:1/sv:%s/ad:%s_0", adapterName, ServiceName(c), DeviceAddress(c, ordinal))
}

func CommandTopic(c Category, ordinal int) string {
	return TopicPrefix + "/mt:cmd" + ServiceAddress(c, ordinal)
}

func ReportTopic(c Category, ordinal int) string {
	return TopicPrefix + "/mt:evt" + ServiceAddress(c, ordinal)
}

func ServiceName(c Category) string {
	switch c {
	case CategoryExteriorScreen:
		return ServiceLevelSwitch
	case CategoryLightSensor:
		return ServiceSensorLuminance
	default:
		return ""
	}
}

// DeviceAddress is the bus-side device address: e<n> for screens, s<n> for
// sensors.
func DeviceAddress(c Category, ordinal int) string {
	switch c {
	case CategoryExteriorScreen:
		return fmt.Sprintf("e%d", ordinal)
	case CategoryLightSensor:
		return fmt.Sprintf("s%d", ordinal)
	default:
		return ""
	}
}

// The cloud reports how far a screen is closed, the bus how far it is open.

func LevelFromClosure(closure int) int {
	return 100 - closure
}

func ClosureFromLevel(level int) int {
	return 100 - level
}

type Report struct {
	Type  string            `json:"type"`
	Serv  string            `json:"serv"`
	ValT  string            `json:"val_t"`
	Val   any               `json:"val"`
	Props map[string]string `json:"props"`
	Ver   string            `json:"ver"`
	Src   string            `json:"src,omitempty"`
}

func ScreenReport(level int) Report {
	return Report{
		Type:  "cmd.lvl.report",
		Serv:  ServiceLevelSwitch,
		ValT:  "int",
		Val:   level,
		Props: map[string]string{},
		Ver:   messageVersion,
		Src:   reportSource,
	}
}

func SensorReport(lux float64) Report {
	return Report{
		Type:  "evt.sensor.report",
		Serv:  ServiceSensorLuminance,
		ValT:  "float",
		Val:   lux,
		Props: map[string]string{"unit": "Lux"},
		Ver:   messageVersion,
	}
}

// ErrorReport tells bus consumers that a request for the service could not
// be carried out by the cloud.
func ErrorReport(c Category, cause error) Report {
	return Report{
		Type:  "evt.error.report",
		Serv:  ServiceName(c),
		ValT:  "string",
		Val:   "COMMAND_FAILED",
		Props: map[string]string{"msg": cause.Error()},
		Ver:   messageVersion,
		Src:   reportSource,
	}
}

type InclusionReport struct {
	Serv  string         `json:"serv"`
	Type  string         `json:"type"`
	ValT  string         `json:"val_t"`
	Val   InclusionValue `json:"val"`
	Src   string         `json:"src"`
	Ver   string         `json:"ver"`
	UID   string         `json:"uid"`
	Topic string         `json:"topic"`
}

type InclusionValue struct {
	Address        string    `json:"address"`
	ProductHash    string    `json:"product_hash"`
	CommTech       string    `json:"comm_tech"`
	ProductName    string    `json:"product_name"`
	ManufacturerID string    `json:"manufacturer_id"`
	HwVer          string    `json:"hw_ver"`
	IsSensor       string    `json:"is_sensor"`
	PowerSource    string    `json:"power_source"`
	Services       []Service `json:"services"`
}

type Service struct {
	Name       string         `json:"name"`
	Alias      string         `json:"alias,omitempty"`
	Address    string         `json:"address"`
	Enabled    bool           `json:"enabled,omitempty"`
	Groups     []string       `json:"groups"`
	Props      map[string]int `json:"props,omitempty"`
	Interfaces []Interface    `json:"interfaces"`
}

type Interface struct {
	IntfT string `json:"intf_t"`
	MsgT  string `json:"msg_t"`
	ValT  string `json:"val_t"`
	Ver   string `json:"ver"`
}

func NewInclusionReport(e Entry) InclusionReport {
	val := InclusionValue{
		Address:        DeviceAddress(e.Category, e.Ordinal),
		ProductHash:    e.Device.ControllableName,
		CommTech:       adapterName,
		ProductName:    e.Device.Label,
		ManufacturerID: "Somfy",
		HwVer:          "1",
	}

	switch e.Category {
	case CategoryExteriorScreen:
		val.IsSensor = "0"
		val.PowerSource = "ac"
		val.Services = []Service{screenService(e.Ordinal)}
	case CategoryLightSensor:
		val.IsSensor = "1"
		val.PowerSource = "battery"
		val.Services = []Service{sensorService(e.Ordinal)}
	}

	return InclusionReport{
		Serv:  adapterName,
		Type:  "evt.thing.inclusion_report",
		ValT:  "object",
		Val:   val,
		Src:   adapterSource,
		Ver:   messageVersion,
		UID:   e.Device.ID,
		Topic: InclusionTopic,
	}
}

func screenService(ordinal int) Service {
	return Service{
		Name:    ServiceLevelSwitch,
		Alias:   "Light control",
		Address: ServiceAddress(CategoryExteriorScreen, ordinal),
		Enabled: true,
		Groups:  []string{"ch_0"},
		Props:   map[string]int{"max_lvl": 100, "min_lvl": 0},
		Interfaces: []Interface{
			{IntfT: "in", MsgT: "cmd.binary.set", ValT: "bool", Ver: "1"},
			{IntfT: "in", MsgT: "cmd.lvl.set", ValT: "int", Ver: "1"},
			{IntfT: "in", MsgT: "cmd.lvl.start", ValT: "string", Ver: "1"},
			{IntfT: "in", MsgT: "cmd.lvl.stop", ValT: "null", Ver: "1"},
			{IntfT: "out", MsgT: "evt.lvl.report", ValT: "int", Ver: "1"},
			{IntfT: "out", MsgT: "evt.binary.report", ValT: "bool", Ver: "1"},
		},
	}
}

func sensorService(ordinal int) Service {
	return Service{
		Name:    ServiceSensorLuminance,
		Address: ServiceAddress(CategoryLightSensor, ordinal),
		Groups:  []string{"ch1"},
		Interfaces: []Interface{
			{IntfT: "out", MsgT: "evt.sensor.report", ValT: "float", Ver: "1"},
			{IntfT: "in", MsgT: "cmd.sensor.get", ValT: "null", Ver: "1"},
		},
	}
}

func EncodeInclusion(e Entry) ([]byte, error) {
	return json.Marshal(NewInclusionReport(e))
}

func EncodeReport(r Report) ([]byte, error) {
	return json.Marshal(r)
}

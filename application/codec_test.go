package application

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "pt:j1/mt:cmd/rt:dev/rn:somfy/ad:1/sv:out_lvl_switch/ad:e2_0", CommandTopic(CategoryExteriorScreen, 2))
	assert.Equal(t, "pt:j1/mt:evt/rt:dev/rn:somfy/ad:1/sv:out_lvl_switch/ad:e1_0", ReportTopic(CategoryExteriorScreen, 1))
	assert.Equal(t, "pt:j1/mt:evt/rt:dev/rn:somfy/ad:1/sv:sensor_lumin/ad:s3_0", ReportTopic(CategoryLightSensor, 3))
	assert.Equal(t, "/rt:dev/rn:somfy/ad:1/sv:sensor_lumin/ad:s1_0", ServiceAddress(CategoryLightSensor, 1))
}

func TestLevelClosureRoundTrip(t *testing.T) {
	for level := 0; level <= 100; level++ {
		closure := ClosureFromLevel(level)
		assert.GreaterOrEqual(t, closure, 0)
		assert.LessOrEqual(t, closure, 100)
		assert.Equal(t, level, LevelFromClosure(closure))
	}

	assert.Equal(t, 70, ClosureFromLevel(30))
	assert.Equal(t, 100, LevelFromClosure(0))
}

func TestScreenReport(t *testing.T) {
	data, err := EncodeReport(ScreenReport(LevelFromClosure(25)))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "cmd.lvl.report",
		"serv": "out_lvl_switch",
		"val_t": "int",
		"val": 75,
		"props": {},
		"ver": "1",
		"src": "fh_somfy"
	}`, string(data))
}

func TestSensorReport(t *testing.T) {
	for _, lux := range []float64{0, 1.5, 12000} {
		t.Run(fmt.Sprint(lux), func(t *testing.T) {
			data, err := EncodeReport(SensorReport(lux))
			require.NoError(t, err)

			var m map[string]any
			require.NoError(t, json.Unmarshal(data, &m))

			assert.Equal(t, "evt.sensor.report", m["type"])
			assert.Equal(t, "sensor_lumin", m["serv"])
			assert.Equal(t, "float", m["val_t"])
			assert.Equal(t, lux, m["val"])
			assert.Equal(t, map[string]any{"unit": "Lux"}, m["props"])
			assert.NotContains(t, m, "src")
		})
	}
}

func TestErrorReport(t *testing.T) {
	r := ErrorReport(CategoryExteriorScreen, fmt.Errorf("boom"))
	assert.Equal(t, "evt.error.report", r.Type)
	assert.Equal(t, ServiceLevelSwitch, r.Serv)
	assert.Equal(t, "boom", r.Props["msg"])
}

func TestInclusionReport_Screen(t *testing.T) {
	e := Entry{Device: screenC, Category: CategoryExteriorScreen, Ordinal: 2}

	data, err := EncodeInclusion(e)
	require.NoError(t, err)

	var r InclusionReport
	require.NoError(t, json.Unmarshal(data, &r))

	assert.Equal(t, "somfy", r.Serv)
	assert.Equal(t, "evt.thing.inclusion_report", r.Type)
	assert.Equal(t, "object", r.ValT)
	assert.Equal(t, "c", r.UID)
	assert.Equal(t, InclusionTopic, r.Topic)
	assert.Equal(t, "e2", r.Val.Address)
	assert.Equal(t, screenC.ControllableName, r.Val.ProductHash)
	assert.Equal(t, "Screen C", r.Val.ProductName)
	assert.Equal(t, "0", r.Val.IsSensor)
	assert.Equal(t, "ac", r.Val.PowerSource)
	require.Len(t, r.Val.Services, 1)
	assert.Equal(t, ServiceLevelSwitch, r.Val.Services[0].Name)
	assert.Equal(t, "/rt:dev/rn:somfy/ad:1/sv:out_lvl_switch/ad:e2_0", r.Val.Services[0].Address)
	assert.True(t, r.Val.Services[0].Enabled)
	assert.Equal(t, map[string]int{"max_lvl": 100, "min_lvl": 0}, r.Val.Services[0].Props)
}

func TestInclusionReport_Sensor(t *testing.T) {
	e := Entry{Device: sensorB, Category: CategoryLightSensor, Ordinal: 1}

	data, err := EncodeInclusion(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))

	val := m["val"].(map[string]any)
	assert.Equal(t, "s1", val["address"])
	assert.Equal(t, "battery", val["power_source"])

	services := val["services"].([]any)
	require.Len(t, services, 1)
	service := services[0].(map[string]any)
	assert.Equal(t, ServiceSensorLuminance, service["name"])
	assert.NotContains(t, service, "alias")
	assert.NotContains(t, service, "props")
}

func TestInclusionReport_Idempotent(t *testing.T) {
	e := Entry{Device: screenA, Category: CategoryExteriorScreen, Ordinal: 1}

	first, err := EncodeInclusion(e)
	require.NoError(t, err)
	second, err := EncodeInclusion(e)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

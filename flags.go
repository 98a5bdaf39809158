package main

import (
	"somfy-to-mqtt/application"

	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

var FlagConfig = &cli.StringFlag{
	Name:     "config",
	Usage:    "optional yaml file with flag values",
	EnvVars:  []string{"CONFIG_FILE"},
	Required: false,
}

var FlagLogLevel = altsrc.NewStringFlag(&cli.StringFlag{
	Name:     "log-level",
	EnvVars:  []string{"LOG_LEVEL"},
	Value:    "info",
	Required: false,
})

var FlagLogWriter = altsrc.NewStringFlag(&cli.StringFlag{
	Name:     "log-writer",
	Usage:    "one of: [console, json]",
	EnvVars:  []string{"LOG_WRITER"},
	Value:    "console",
	Required: false,
})

// Credentials may come from the config file, so they are checked in the
// action instead of being marked Required.

var FlagSomfyUsername = altsrc.NewStringFlag(&cli.StringFlag{
	Name:    "somfy-username",
	Usage:   "somfy account e-mail",
	EnvVars: []string{"SOMFY_USERNAME"},
})

var FlagSomfyPassword = altsrc.NewStringFlag(&cli.StringFlag{
	Name:    "somfy-password",
	Usage:   "somfy account password",
	EnvVars: []string{"SOMFY_PASSWORD"},
})

var FlagSomfyServer = altsrc.NewStringFlag(&cli.StringFlag{
	Name:     "somfy-server",
	Usage:    "one of: [somfy_europe, somfy_america, somfy_oceania]",
	EnvVars:  []string{"SOMFY_SERVER"},
	Value:    "somfy_europe",
	Required: false,
})

var FlagCloudRetries = altsrc.NewIntFlag(&cli.IntFlag{
	Name:     "cloud-retries",
	Usage:    "retries of a failed cloud call before giving up",
	EnvVars:  []string{"CLOUD_RETRIES"},
	Value:    3,
	Required: false,
})

var FlagPollInterval = altsrc.NewDurationFlag(&cli.DurationFlag{
	Name:     "poll-interval",
	Usage:    "pause between two cloud event polls",
	EnvVars:  []string{"POLL_INTERVAL"},
	Value:    application.DefaultPollInterval,
	Required: false,
})

var FlagMQTTUrl = altsrc.NewStringFlag(&cli.StringFlag{
	Name:    "mqtt-url",
	Usage:   "tcp://broker:port",
	EnvVars: []string{"MQTT_URL"},
})

var FlagMQTTClientID = altsrc.NewStringFlag(&cli.StringFlag{
	Name:     "mqtt-client-id",
	EnvVars:  []string{"MQTT_CLIENT_ID"},
	Value:    "somfy-to-mqtt",
	Required: false,
})

var FlagMQTTUsername = altsrc.NewStringFlag(&cli.StringFlag{
	Name:    "mqtt-username",
	EnvVars: []string{"MQTT_USERNAME"},
})

var FlagMQTTPassword = altsrc.NewStringFlag(&cli.StringFlag{
	Name:    "mqtt-password",
	EnvVars: []string{"MQTT_PASSWORD"},
})

var FlagMQTTControlTopic = altsrc.NewStringFlag(&cli.StringFlag{
	Name:     "mqtt-control-topic",
	Usage:    "a message on this topic triggers a full state refresh",
	EnvVars:  []string{"MQTT_CONTROL_TOPIC"},
	Value:    application.DefaultControlTopic,
	Required: false,
})

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"somfy-to-mqtt/adapters"
	"somfy-to-mqtt/application"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

var Flags = []cli.Flag{
	FlagConfig,
	FlagLogLevel,
	FlagLogWriter,
	FlagSomfyUsername,
	FlagSomfyPassword,
	FlagSomfyServer,
	FlagCloudRetries,
	FlagPollInterval,
	FlagMQTTUrl,
	FlagMQTTClientID,
	FlagMQTTUsername,
	FlagMQTTPassword,
	FlagMQTTControlTopic,
}

func main() {
	var logger zerolog.Logger

	app := cli.App{
		Name:    "somfy-to-mqtt",
		Usage:   "bridges Somfy cloud screens and sensors to a FIMP mqtt bus",
		Version: "v0.1.0",
		Authors: []*cli.Author{
			{
				Name: "somfy-to-mqtt contributors",
			},
		},
		Flags:   Flags,
		Before: func(ctx *cli.Context) error {
			loadConfig := altsrc.InitInputSourceWithContext(Flags, altsrc.NewYamlSourceFromFlagFunc(FlagConfig.Name))
			if err := loadConfig(ctx); err != nil {
				return err
			}

			var logWriter io.Writer
			switch ctx.String(FlagLogWriter.Name) {
			case "console":
				logWriter = zerolog.ConsoleWriter{
					Out:        os.Stderr,
					TimeFormat: time.RFC3339Nano,
				}
			case "json":
				logWriter = os.Stderr
			default:
				return fmt.Errorf("invalid log writer: %s", ctx.String(FlagLogWriter.Name))
			}

			logger = zerolog.New(logWriter).With().Timestamp().
				Str("service", "somfy-to-mqtt").
				Str("module", "main").
				Logger()

			level, err := zerolog.ParseLevel(ctx.String(FlagLogLevel.Name))
			if err != nil {
				return err
			}

			zerolog.SetGlobalLevel(level)

			return nil
		},
		Action: func(ctx *cli.Context) error {
			for _, name := range []string{FlagSomfyUsername.Name, FlagSomfyPassword.Name, FlagMQTTUrl.Name} {
				if ctx.String(name) == "" {
					return fmt.Errorf("flag %s is required", name)
				}
			}
			if ctx.Int(FlagCloudRetries.Name) < 1 {
				return fmt.Errorf("flag %s must be at least 1", FlagCloudRetries.Name)
			}

			logger.Info().Msg("service starting...")

			appCtx, cancel := context.WithCancel(logger.WithContext(context.Background()))
			defer cancel()
			go func() {
				c := make(chan os.Signal, 1)
				signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

				<-c

				logger.Warn().Msg("interrupt signal received")
				cancel()
			}()

			endpoint, ok := adapters.OverkizEndpoints[ctx.String(FlagSomfyServer.Name)]
			if !ok {
				return fmt.Errorf("invalid somfy server")
			}
			logger.Info().Msgf("overkiz endpoint: %s", endpoint)

			overkizClient, err := adapters.NewOverkizClient(adapters.OverkizClientParams{
				Username: ctx.String(FlagSomfyUsername.Name),
				Password: ctx.String(FlagSomfyPassword.Name),
				Endpoint: endpoint,
				Log:      logger.With().Str("module", "overkiz-client").Logger(),
			})
			if err != nil {
				return err
			}

			cloudClient := adapters.NewRetryingCloudClient(adapters.RetryingCloudClientParams{
				CloudClient: overkizClient,
				MaxRetries:  uint64(ctx.Int(FlagCloudRetries.Name)),
				Log:         logger.With().Str("module", "cloud-retry").Logger(),
			})

			mqttClient := adapters.NewMQTTClient(adapters.MQTTClientParams{
				ClientID: ctx.String(FlagMQTTClientID.Name),
				Username: ctx.String(FlagMQTTUsername.Name),
				Password: ctx.String(FlagMQTTPassword.Name),
				MQTTUrl:  ctx.String(FlagMQTTUrl.Name),
				Log:      logger.With().Str("module", "mqtt-client").Logger(),
			})

			logger.Info().Msgf("mqtt broker: %s", ctx.String(FlagMQTTUrl.Name))
			if err := mqttClient.Connect(); err != nil {
				return err
			}
			defer mqttClient.Disconnect()

			somfyToMQTTService, err := application.NewSomfyToMQTTService(application.SomfyToMQTTServiceParams{
				CloudClient:  cloudClient,
				MQTTClient:   mqttClient,
				ControlTopic: ctx.String(FlagMQTTControlTopic.Name),
				PollInterval: ctx.Duration(FlagPollInterval.Name),
				Log:          logger.With().Str("module", "service").Logger(),
			})
			if err != nil {
				return err
			}

			logger.Info().Msg("service started")
			err = somfyToMQTTService.Run(appCtx)
			if err != nil {
				return err
			}

			logger.Info().Msg("service terminating...")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Err(err).Msg("service terminated")
		os.Exit(1)
	}
}

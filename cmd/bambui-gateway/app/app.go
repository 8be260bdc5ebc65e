package app

import (
	"fmt"

	"github.com/bambui-io/bambui/cmd/bambui-gateway/app/options"
	"github.com/bambui-io/bambui/pkg/app"
	"github.com/bambui-io/bambui/pkg/log"
)

const (
	commandName = "bambui-gateway"
	commandDesc = `The bambui gateway bridges browser clients to Bambu Lab printers on the
local network. It maintains the MQTT telemetry/control session and the
camera stream per printer, exposes both over websockets, and serves a
small REST API for printer files and an optional shared print library.`
)

func NewApp() *app.App {
	opts := options.NewGatewayOptions()
	application := app.NewApp(
		commandName,
		"Launch the bambui printer gateway",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	application.Command().AddCommand(newPrintersCommand(opts))
	return application
}

func run(opts *options.GatewayOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		ctx := app.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		gw, err := cfg.NewGateway()
		if err != nil {
			return fmt.Errorf("failed to create gateway: %w", err)
		}

		return gw.Run(ctx)
	}
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bambui-io/bambui/pkg/log"
)

// RunFunc defines the application's startup callback function.
type RunFunc func() error

// App is the main structure of a cli application.
type App struct {
	name        string
	short       string
	description string
	options     CliOptions
	run         RunFunc
	cmd         *cobra.Command

	configFile string
}

// Option defines optional parameters for initializing the application structure.
type Option func(*App)

// WithDescription is used to set the description of the application.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions to open the application's function to read from the command line
// or read parameters from the configuration file.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc is used to set the application startup callback function option.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.run = run
	}
}

// WithDefaultValidArgs rejects any positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.cmd.Args = cobra.NoArgs
	}
}

// NewApp creates a new application instance based on the given name,
// short description, and other options.
func NewApp(name string, short string, opts ...Option) *App {
	a := &App{
		name:  name,
		short: short,
		cmd: &cobra.Command{
			Use:           name,
			Short:         short,
			SilenceUsage:  true,
			SilenceErrors: true,
		},
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()

	return a
}

func (a *App) buildCommand() {
	a.cmd.Long = a.description

	a.cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "",
		"Path to the configuration file.")

	if a.options != nil {
		a.options.AddFlags(a.cmd.Flags())
	}

	a.cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if a.options != nil {
			if err := LoadConfig(a.configFile, a.name, cmd.Flags(), a.options); err != nil {
				return err
			}

			if err := a.options.Complete(); err != nil {
				return err
			}
			if err := a.options.Validate(); err != nil {
				return err
			}
		}

		if a.run != nil {
			return a.run()
		}
		return nil
	}
}

// Command returns the underlying cobra command, so callers can attach
// subcommands before Run.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run launches the application.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		log.Error(err, "Application exited with error")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// SetupSignalContext returns a context cancelled on SIGINT or SIGTERM.
// A second signal terminates the process directly.
func SetupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		<-ch
		os.Exit(1)
	}()

	return ctx
}

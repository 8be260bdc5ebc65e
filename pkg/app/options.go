package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line and a configuration file.
type CliOptions interface {
	// AddFlags binds all option fields to the flag set.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills in any fields not set that are required to have valid data.
	Complete() error

	// Validate checks the completed options.
	Validate() error
}

// LoadConfig merges, in increasing precedence: config file values,
// environment variables (BAMBUI_ prefix), and command-line flags, then
// unmarshals the result into opts via its mapstructure tags.
func LoadConfig(configFile, name string, fs *pflag.FlagSet, opts CliOptions) error {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/bambui")
	}

	v.SetEnvPrefix("BAMBUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is only an error when one was named explicitly.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

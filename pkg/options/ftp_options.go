package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*FtpOptions)(nil)

// FtpOptions contains client behavior for the per-printer FTPS file channel.
// Credentials follow the same rule as MQTT: username "bblp" and the printer's
// access code.
type FtpOptions struct {
	// Port is the implicit-TLS FTPS port the printer listens on.
	Port int `json:"port" mapstructure:"port"`

	// Username for the FTPS login.
	Username string `json:"username" mapstructure:"username"`

	// Timeout applies to dial and control-channel operations.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewFtpOptions creates a new FtpOptions with default values.
func NewFtpOptions() *FtpOptions {
	return &FtpOptions{
		Port:     990,
		Username: "bblp",
		Timeout:  15 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *FtpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	return errors
}

// AddFlags adds flags for FtpOptions to the specified FlagSet.
func (o *FtpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.Port, "ftp.port", o.Port, "The implicit-TLS FTPS port of the printers.")
	fs.StringVar(&o.Username, "ftp.username", o.Username, "The username for printer FTPS authentication.")
	fs.DurationVar(&o.Timeout, "ftp.timeout", o.Timeout, "Timeout for FTPS operations.")
}

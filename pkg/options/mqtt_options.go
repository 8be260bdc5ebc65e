package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains client behavior for the per-printer MQTT sessions.
// Broker address and credentials are not configured here: each printer is its
// own broker (tls://{ip}:8883) and logs in with the fixed username "bblp" and
// its access code, so those come from the printer registry.
type MqttOptions struct {
	// Port is the MQTT-over-TLS port the printer firmware listens on.
	Port int `json:"port" mapstructure:"port"`

	// Username for the broker login. Bambu firmware only accepts "bblp".
	Username string `json:"username" mapstructure:"username"`

	// KeepAlive in seconds.
	KeepAlive time.Duration `json:"keep-alive" mapstructure:"keep-alive"`

	// ConnectTimeout for the initial connection.
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`

	// InsecureSkipVerify controls whether the client verifies the printer's
	// certificate chain. Printers ship self-signed certs, so this defaults to
	// true and turning it off will break every session.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Port:               8883,
		Username:           "bblp",
		KeepAlive:          60 * time.Second,
		ConnectTimeout:     5 * time.Second,
		InsecureSkipVerify: true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	return errors
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.Port, "mqtt.port", o.Port, "The MQTT-over-TLS port of the printers.")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "The username for printer MQTT authentication.")
	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout for establishing an MQTT connection.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")
}

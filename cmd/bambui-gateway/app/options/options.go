package options

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bambui-io/bambui/internal/gateway"
	"github.com/bambui-io/bambui/internal/gateway/session"
	"github.com/bambui-io/bambui/pkg/app"
	"github.com/bambui-io/bambui/pkg/log"
	"github.com/bambui-io/bambui/pkg/options"
)

// PrinterSpec is one printer entry from the config file. There are no
// flags for these; a gateway without a config file has no printers.
type PrinterSpec struct {
	Name       string `json:"name" mapstructure:"name"`
	IP         string `json:"ip" mapstructure:"ip"`
	AccessCode string `json:"access-code" mapstructure:"access-code"`
	Serial     string `json:"serial" mapstructure:"serial"`
	Model      string `json:"model" mapstructure:"model"`
	KeepAlive  bool   `json:"keep-alive" mapstructure:"keep-alive"`
}

type GatewayOptions struct {
	Printers []PrinterSpec `json:"printers" mapstructure:"printers"`

	HttpOptions *options.HttpOptions `json:"http" mapstructure:"http"`
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	FtpOptions  *options.FtpOptions  `json:"ftp" mapstructure:"ftp"`
	S3Options   *options.S3Options   `json:"s3" mapstructure:"s3"`
	Log         *log.Options         `json:"log" mapstructure:"log"`
}

var _ app.CliOptions = (*GatewayOptions)(nil)

func NewGatewayOptions() *GatewayOptions {
	return &GatewayOptions{
		HttpOptions: options.NewHttpOptions(),
		MqttOptions: options.NewMqttOptions(),
		FtpOptions:  options.NewFtpOptions(),
		S3Options:   options.NewS3Options(),
		Log:         log.NewOptions(),
	}
}

func (o *GatewayOptions) AddFlags(fs *pflag.FlagSet) {
	o.HttpOptions.AddFlags(fs)
	o.MqttOptions.AddFlags(fs)
	o.FtpOptions.AddFlags(fs)
	o.S3Options.AddFlags(fs)
	o.Log.AddFlags(fs)
}

func (o *GatewayOptions) Complete() error {
	return nil
}

func (o *GatewayOptions) Validate() error {
	errs := []error{}
	if len(o.Printers) == 0 {
		errs = append(errs, fmt.Errorf("no printers configured"))
	}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.FtpOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config translates the options into the gateway's runtime configuration.
func (o *GatewayOptions) Config() (*gateway.Config, error) {
	printers := make([]session.Identity, 0, len(o.Printers))
	for _, p := range o.Printers {
		printers = append(printers, session.Identity{
			Name:       p.Name,
			IP:         p.IP,
			AccessCode: p.AccessCode,
			Serial:     p.Serial,
			Model:      p.Model,
			KeepAlive:  p.KeepAlive,
		})
	}

	return &gateway.Config{
		Printers:    printers,
		HttpOptions: o.HttpOptions,
		MqttOptions: o.MqttOptions,
		FtpOptions:  o.FtpOptions,
		S3Options:   o.S3Options,
	}, nil
}

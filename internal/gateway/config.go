package gateway

import (
	"github.com/bambui-io/bambui/internal/gateway/session"
	"github.com/bambui-io/bambui/pkg/options"
)

// Config carries everything the gateway needs to run. Built by the
// command layer from flags, environment and the config file.
type Config struct {
	Printers []session.Identity

	HttpOptions *options.HttpOptions
	MqttOptions *options.MqttOptions
	FtpOptions  *options.FtpOptions
	S3Options   *options.S3Options
}

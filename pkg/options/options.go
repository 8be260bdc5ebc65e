package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions defines the methods implemented by every option set.
type IOptions interface {
	// Validate checks the options and returns all problems found.
	Validate() []error

	// AddFlags binds the options to a flag set. Prefixes allow reuse of the
	// same option set under different flag namespaces.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a valid "host:port" listen address.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

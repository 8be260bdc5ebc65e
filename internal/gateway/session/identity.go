package session

import (
	"fmt"
	"net/netip"
)

// SupportedModels is the closed set of firmware variants the gateway speaks.
var SupportedModels = map[string]bool{
	"P1S": true,
}

// Identity describes one configured printer. Created once at startup from
// configuration and never mutated.
type Identity struct {
	Name       string
	IP         string
	AccessCode string
	Serial     string
	Model      string

	// KeepAlive pins the camera transport up even when nobody is watching,
	// trading idle bandwidth for an instant first frame.
	KeepAlive bool
}

// Validate checks the identity fields read from configuration.
func (id Identity) Validate() error {
	if id.Name == "" {
		return fmt.Errorf("printer name is required")
	}
	if _, err := netip.ParseAddr(id.IP); err != nil {
		return fmt.Errorf("printer %q: invalid ip: %w", id.Name, err)
	}
	if id.AccessCode == "" {
		return fmt.Errorf("printer %q: access code is required", id.Name)
	}
	if id.Serial == "" {
		return fmt.Errorf("printer %q: serial is required", id.Name)
	}
	if !SupportedModels[id.Model] {
		return fmt.Errorf("printer %q: unsupported model %q", id.Name, id.Model)
	}
	return nil
}

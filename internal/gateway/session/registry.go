package session

import (
	"fmt"
	"sort"

	"github.com/bambui-io/bambui/pkg/log"
	"github.com/bambui-io/bambui/pkg/options"
)

// Registry is the process-wide mapping from printer name to session.
// Built once at startup and read-only afterwards, so lookups need no
// locking.
type Registry struct {
	sessions map[string]*Session
}

// NewRegistry validates the configured printers and builds a session for
// each.
func NewRegistry(identities []Identity, mqttOpts *options.MqttOptions, ftpOpts *options.FtpOptions) (*Registry, error) {
	sessions := make(map[string]*Session, len(identities))
	for _, id := range identities {
		if err := id.Validate(); err != nil {
			return nil, err
		}
		if _, dup := sessions[id.Name]; dup {
			return nil, fmt.Errorf("duplicate printer name %q", id.Name)
		}
		sessions[id.Name] = New(id, mqttOpts, ftpOpts)
	}

	names := make([]string, 0, len(sessions))
	for name := range sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	log.Info("Printer registry built", "printers", names)

	return &Registry{sessions: sessions}, nil
}

// Get returns the session for a printer name, or nil when unknown.
func (r *Registry) Get(name string) *Session {
	return r.sessions[name]
}

// Identities lists the configured printers sorted by name.
func (r *Registry) Identities() []Identity {
	out := make([]Identity, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

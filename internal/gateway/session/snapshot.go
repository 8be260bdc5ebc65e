package session

import "maps"

// snapshot accumulates telemetry fragments into the printer's last known
// state. The firmware sends incremental updates most of the time; a full
// report (msg == 0) establishes the baseline, and until one arrives the
// accumulated fields are incomplete and must not be shown to subscribers.
//
// Not safe for concurrent use; callers hold the session mutex.
type snapshot struct {
	fields      map[string]any
	hasFullPush bool
}

func newSnapshot() *snapshot {
	return &snapshot{fields: make(map[string]any)}
}

// Merge applies one fragment field-wise, last write wins.
func (s *snapshot) Merge(fragment map[string]any) {
	maps.Copy(s.fields, fragment)
	if isZero(fragment["msg"]) {
		s.hasFullPush = true
	}
}

// Primed reports whether a full report has been merged since the last
// broker (re)connect.
func (s *snapshot) Primed() bool {
	return s.hasFullPush
}

// Reset drops the baseline mark after a broker reconnect. Accumulated
// fields survive as the last known state.
func (s *snapshot) Reset() {
	s.hasFullPush = false
}

// Fields returns a copy of the accumulated state, safe to hand to
// subscribers.
func (s *snapshot) Fields() map[string]any {
	out := make(map[string]any, len(s.fields))
	maps.Copy(out, s.fields)
	return out
}

// PrintType returns the firmware's print_type field, or "" before the
// first report that carries it.
func (s *snapshot) PrintType() string {
	v, _ := s.fields["print_type"].(string)
	return v
}

// Idle reports whether the printer accepts motion and print commands.
func (s *snapshot) Idle() bool {
	return s.PrintType() == "idle"
}

func isZero(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 0
	case int:
		return n == 0
	}
	return false
}

package command

import (
	"encoding/json"
	"fmt"
)

// factories maps the wire discriminator to a constructor returning the
// variant with its defaults applied. Decoding overwrites only the fields
// present in the request.
var factories = map[string]func() Command{
	"chamber_light":   func() Command { return &ChamberLight{} },
	"extruder_temp":   func() Command { return &ExtruderTemp{} },
	"bed_temp":        func() Command { return &BedTemp{} },
	"print_speed":     func() Command { return &PrintSpeed{} },
	"fan_part":        func() Command { return &PartFanSpeed{} },
	"fan_aux":         func() Command { return &AuxFanSpeed{} },
	"fan_chamber":     func() Command { return &ChamberFanSpeed{} },
	"move_x":          func() Command { return &MoveX{} },
	"move_y":          func() Command { return &MoveY{} },
	"move_z":          func() Command { return &MoveZ{} },
	"move_e":          func() Command { return &MoveE{} },
	"move_home":       func() Command { return &MoveHome{} },
	"stop_print":      func() Command { return &StopPrint{} },
	"pause_print":     func() Command { return &PausePrint{} },
	"resume_print":    func() Command { return &ResumePrint{} },
	"load_filament":   func() Command { return &LoadFilament{} },
	"unload_filament": func() Command { return &UnloadFilament{} },
	"force_refresh":   func() Command { return &ForceRefresh{} },
	"calibrate": func() Command {
		return &Calibrate{
			BedLevelling:           true,
			MotorNoiseCancellation: true,
			VibrationCompensation:  true,
		}
	},
	"upload_file": func() Command { return &PrintFile{} },
}

// Decode parses a client request into its command variant. Unknown types and
// schema-invalid payloads are rejected here, before dispatch.
func Decode(data []byte) (Command, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	factory, ok := factories[head.Type]
	if !ok {
		return nil, fmt.Errorf("unknown command type %q", head.Type)
	}

	cmd := factory()
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("invalid %s command: %w", head.Type, err)
	}

	if v, ok := cmd.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("invalid %s command: %w", head.Type, err)
		}
	}

	return cmd, nil
}

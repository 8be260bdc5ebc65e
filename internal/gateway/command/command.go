package command

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Command is one concrete user control intent with its wire encoding.
type Command interface {
	// Type returns the wire discriminator of the variant.
	Type() string

	// CheckIdle reports whether dispatch must be rejected unless the
	// printer's reported print state is "idle".
	CheckIdle() bool

	// Payload returns the raw wire payload, or nil when the command
	// publishes nothing (e.g. force_refresh).
	Payload() Raw
}

// Host is the slice of a printer session that command hooks may act on.
type Host interface {
	// UploadFile transfers a file to the printer over the FTPS channel.
	UploadFile(ctx context.Context, name string, data []byte) error

	// Notify emits an informational message event to all subscribers.
	Notify(text string)

	// Refresh tears down and restarts the session's transports.
	Refresh(ctx context.Context) error
}

// PreDispatcher is implemented by commands with a pre-dispatch side effect,
// run before the payload is published.
type PreDispatcher interface {
	PreDispatch(ctx context.Context, h Host) error
}

// PostDispatcher is implemented by commands with a post-dispatch side effect.
type PostDispatcher interface {
	PostDispatch(ctx context.Context, h Host) error
}

type validator interface {
	validate() error
}

// --- Variants ---

type ChamberLight struct {
	Enable bool `json:"enable"`
}

func (ChamberLight) Type() string    { return "chamber_light" }
func (ChamberLight) CheckIdle() bool { return false }
func (c ChamberLight) Payload() Raw  { return lightPayload(c.Enable) }

type ExtruderTemp struct {
	Temperature int `json:"temperature"`
}

func (ExtruderTemp) Type() string    { return "extruder_temp" }
func (ExtruderTemp) CheckIdle() bool { return false }
func (c ExtruderTemp) Payload() Raw  { return extruderTempPayload(c.Temperature) }

type BedTemp struct {
	Temperature int `json:"temperature"`
}

func (BedTemp) Type() string    { return "bed_temp" }
func (BedTemp) CheckIdle() bool { return false }
func (c BedTemp) Payload() Raw  { return bedTempPayload(c.Temperature) }

// PrintSpeed selects one of the four firmware speed tiers
// (1=silent, 2=standard, 3=sport, 4=ludicrous).
type PrintSpeed struct {
	Speed int `json:"speed"`
}

func (PrintSpeed) Type() string    { return "print_speed" }
func (PrintSpeed) CheckIdle() bool { return false }
func (c PrintSpeed) Payload() Raw  { return speedLevelPayload(c.Speed) }

func (c PrintSpeed) validate() error {
	if c.Speed < 1 || c.Speed > 4 {
		return fmt.Errorf("speed level must be 1..4, got %d", c.Speed)
	}
	return nil
}

type PartFanSpeed struct {
	Speed int `json:"speed"`
}

func (PartFanSpeed) Type() string      { return "fan_part" }
func (PartFanSpeed) CheckIdle() bool   { return false }
func (c PartFanSpeed) Payload() Raw    { return fanSpeedPayload(c.Speed, fanNumPart) }
func (c PartFanSpeed) validate() error { return validateFanSpeed(c.Speed) }

type AuxFanSpeed struct {
	Speed int `json:"speed"`
}

func (AuxFanSpeed) Type() string      { return "fan_aux" }
func (AuxFanSpeed) CheckIdle() bool   { return false }
func (c AuxFanSpeed) Payload() Raw    { return fanSpeedPayload(c.Speed, fanNumAux) }
func (c AuxFanSpeed) validate() error { return validateFanSpeed(c.Speed) }

type ChamberFanSpeed struct {
	Speed int `json:"speed"`
}

func (ChamberFanSpeed) Type() string      { return "fan_chamber" }
func (ChamberFanSpeed) CheckIdle() bool   { return false }
func (c ChamberFanSpeed) Payload() Raw    { return fanSpeedPayload(c.Speed, fanNumChamber) }
func (c ChamberFanSpeed) validate() error { return validateFanSpeed(c.Speed) }

func validateFanSpeed(speed int) error {
	if speed < 0 || speed > 255 {
		return fmt.Errorf("fan speed must be 0..255, got %d", speed)
	}
	return nil
}

type MoveX struct {
	Distance int `json:"distance"`
}

func (MoveX) Type() string    { return "move_x" }
func (MoveX) CheckIdle() bool { return true }
func (c MoveX) Payload() Raw  { return moveAxisPayload("X", c.Distance) }

type MoveY struct {
	Distance int `json:"distance"`
}

func (MoveY) Type() string    { return "move_y" }
func (MoveY) CheckIdle() bool { return true }
func (c MoveY) Payload() Raw  { return moveAxisPayload("Y", c.Distance) }

type MoveZ struct {
	Distance int `json:"distance"`
}

func (MoveZ) Type() string    { return "move_z" }
func (MoveZ) CheckIdle() bool { return true }
func (c MoveZ) Payload() Raw  { return moveAxisPayload("Z", c.Distance) }

// MoveE drives the extruder axis.
type MoveE struct {
	Distance int `json:"distance"`
}

func (MoveE) Type() string    { return "move_e" }
func (MoveE) CheckIdle() bool { return true }
func (c MoveE) Payload() Raw  { return moveAxisPayload("E", c.Distance) }

type MoveHome struct{}

func (MoveHome) Type() string    { return "move_home" }
func (MoveHome) CheckIdle() bool { return true }
func (MoveHome) Payload() Raw    { return homePayload() }

type StopPrint struct{}

func (StopPrint) Type() string    { return "stop_print" }
func (StopPrint) CheckIdle() bool { return false }
func (StopPrint) Payload() Raw    { return stopPayload() }

type PausePrint struct{}

func (PausePrint) Type() string    { return "pause_print" }
func (PausePrint) CheckIdle() bool { return false }
func (PausePrint) Payload() Raw    { return pausePayload() }

type ResumePrint struct{}

func (ResumePrint) Type() string    { return "resume_print" }
func (ResumePrint) CheckIdle() bool { return false }
func (ResumePrint) Payload() Raw    { return resumePayload() }

type LoadFilament struct{}

func (LoadFilament) Type() string    { return "load_filament" }
func (LoadFilament) CheckIdle() bool { return true }
func (LoadFilament) Payload() Raw    { return filamentLoadPayload() }

type UnloadFilament struct{}

func (UnloadFilament) Type() string    { return "unload_filament" }
func (UnloadFilament) CheckIdle() bool { return true }
func (UnloadFilament) Payload() Raw    { return filamentUnloadPayload() }

// ForceRefresh tears the session's transports down and restarts them.
// It never reaches the wire.
type ForceRefresh struct{}

func (ForceRefresh) Type() string    { return "force_refresh" }
func (ForceRefresh) CheckIdle() bool { return false }
func (ForceRefresh) Payload() Raw    { return nil }

func (ForceRefresh) PreDispatch(ctx context.Context, h Host) error {
	return h.Refresh(ctx)
}

// Calibrate runs the selected self-checks. Omitted flags default to enabled.
type Calibrate struct {
	BedLevelling           bool `json:"bed_levelling"`
	MotorNoiseCancellation bool `json:"motor_noise_cancellation"`
	VibrationCompensation  bool `json:"vibration_compensation"`
}

func (Calibrate) Type() string    { return "calibrate" }
func (Calibrate) CheckIdle() bool { return true }
func (c Calibrate) Payload() Raw {
	return calibrationPayload(c.BedLevelling, c.MotorNoiseCancellation, c.VibrationCompensation)
}

// PrintFile uploads a file over FTPS and starts printing it.
type PrintFile struct {
	File     FileBytes `json:"file"`
	FileName string    `json:"file_name"`
}

func (PrintFile) Type() string    { return "upload_file" }
func (PrintFile) CheckIdle() bool { return true }
func (c PrintFile) Payload() Raw  { return startPrintFilePayload(c.FileName) }

func (c PrintFile) validate() error {
	if c.FileName == "" {
		return fmt.Errorf("file_name is required")
	}
	if len(c.File) == 0 {
		return fmt.Errorf("file is required")
	}
	return nil
}

func (c PrintFile) PreDispatch(ctx context.Context, h Host) error {
	if err := h.UploadFile(ctx, c.FileName, c.File); err != nil {
		return err
	}
	h.Notify(fmt.Sprintf("File '%s' uploaded", c.FileName))
	return nil
}

func (c PrintFile) PostDispatch(ctx context.Context, h Host) error {
	h.Notify(fmt.Sprintf("Print '%s' started", c.FileName))
	return nil
}

// FileBytes holds file content that arrives either base64-encoded or as a
// plain string. Base64 is tried first; on failure the literal bytes are kept.
type FileBytes []byte

func (f *FileBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		*f = decoded
		return nil
	}

	*f = []byte(s)
	return nil
}

func (f FileBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(f))
}

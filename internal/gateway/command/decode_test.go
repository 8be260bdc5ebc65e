package command

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
)

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  string
		checkIdle bool
	}{
		{"chamber light", `{"type":"chamber_light","enable":true}`, "chamber_light", false},
		{"extruder temp", `{"type":"extruder_temp","temperature":200}`, "extruder_temp", false},
		{"bed temp", `{"type":"bed_temp","temperature":60}`, "bed_temp", false},
		{"print speed", `{"type":"print_speed","speed":2}`, "print_speed", false},
		{"part fan", `{"type":"fan_part","speed":100}`, "fan_part", false},
		{"move x", `{"type":"move_x","distance":10}`, "move_x", true},
		{"move home", `{"type":"move_home"}`, "move_home", true},
		{"stop", `{"type":"stop_print"}`, "stop_print", false},
		{"pause", `{"type":"pause_print"}`, "pause_print", false},
		{"resume", `{"type":"resume_print"}`, "resume_print", false},
		{"load filament", `{"type":"load_filament"}`, "load_filament", true},
		{"unload filament", `{"type":"unload_filament"}`, "unload_filament", true},
		{"force refresh", `{"type":"force_refresh"}`, "force_refresh", false},
		{"calibrate", `{"type":"calibrate"}`, "calibrate", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if cmd.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", cmd.Type(), tt.wantType)
			}
			if cmd.CheckIdle() != tt.checkIdle {
				t.Errorf("CheckIdle() = %v, want %v", cmd.CheckIdle(), tt.checkIdle)
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"type":"make_coffee"}`},
		{"no type", `{"speed":3}`},
		{"speed too low", `{"type":"print_speed","speed":0}`},
		{"speed too high", `{"type":"print_speed","speed":5}`},
		{"fan speed out of range", `{"type":"fan_aux","speed":300}`},
		{"fan speed negative", `{"type":"fan_part","speed":-1}`},
		{"upload without name", `{"type":"upload_file","file":"aGk="}`},
		{"upload without content", `{"type":"upload_file","file_name":"a.3mf"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Errorf("Decode(%s) succeeded, want error", tt.input)
			}
		})
	}
}

// Calibration flags default to enabled; a request may disable them
// selectively.
func TestDecodeCalibrateDefaults(t *testing.T) {
	cmd, err := Decode([]byte(`{"type":"calibrate"}`))
	if err != nil {
		t.Fatal(err)
	}
	cal := cmd.(*Calibrate)
	if !cal.BedLevelling || !cal.MotorNoiseCancellation || !cal.VibrationCompensation {
		t.Errorf("defaults not applied: %+v", cal)
	}

	cmd, err = Decode([]byte(`{"type":"calibrate","bed_levelling":false}`))
	if err != nil {
		t.Fatal(err)
	}
	cal = cmd.(*Calibrate)
	if cal.BedLevelling {
		t.Error("bed_levelling should be disabled")
	}
	if !cal.MotorNoiseCancellation || !cal.VibrationCompensation {
		t.Errorf("untouched flags lost their defaults: %+v", cal)
	}
}

func TestDecodeFileBytes(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("gcode here"))
	cmd, err := Decode([]byte(`{"type":"upload_file","file_name":"a.3mf","file":"` + encoded + `"}`))
	if err != nil {
		t.Fatal(err)
	}
	pf := cmd.(*PrintFile)
	if string(pf.File) != "gcode here" {
		t.Errorf("File = %q, want decoded content", pf.File)
	}

	// Content that is not valid base64 is kept verbatim.
	cmd, err = Decode([]byte(`{"type":"upload_file","file_name":"a.3mf","file":"!!not-base64!!"}`))
	if err != nil {
		t.Fatal(err)
	}
	pf = cmd.(*PrintFile)
	if string(pf.File) != "!!not-base64!!" {
		t.Errorf("File = %q, want raw content", pf.File)
	}
}

type hostRecorder struct {
	uploads   []string
	messages  []string
	refreshes int
	uploadErr error
}

func (h *hostRecorder) UploadFile(_ context.Context, name string, _ []byte) error {
	if h.uploadErr != nil {
		return h.uploadErr
	}
	h.uploads = append(h.uploads, name)
	return nil
}

func (h *hostRecorder) Notify(text string) { h.messages = append(h.messages, text) }

func (h *hostRecorder) Refresh(context.Context) error {
	h.refreshes++
	return nil
}

func TestPrintFileHooks(t *testing.T) {
	host := &hostRecorder{}
	cmd := PrintFile{FileName: "boat.3mf", File: []byte("data")}

	if err := cmd.PreDispatch(context.Background(), host); err != nil {
		t.Fatal(err)
	}
	if len(host.uploads) != 1 || host.uploads[0] != "boat.3mf" {
		t.Errorf("uploads = %v", host.uploads)
	}
	if err := cmd.PostDispatch(context.Background(), host); err != nil {
		t.Fatal(err)
	}
	if len(host.messages) != 2 {
		t.Fatalf("messages = %v", host.messages)
	}
	if !strings.Contains(host.messages[0], "uploaded") || !strings.Contains(host.messages[1], "started") {
		t.Errorf("messages = %v", host.messages)
	}
}

func TestForceRefreshHook(t *testing.T) {
	host := &hostRecorder{}
	if err := (ForceRefresh{}).PreDispatch(context.Background(), host); err != nil {
		t.Fatal(err)
	}
	if host.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", host.refreshes)
	}
}

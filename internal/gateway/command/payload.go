package command

import (
	"fmt"
	"strconv"
)

// Raw is the JSON object published on the printer's request topic.
// A nil Raw means the command produces no wire payload.
type Raw map[string]any

// Fan channel numbers are firmware constants; they must never change.
const (
	fanNumPart    = 1
	fanNumAux     = 2
	fanNumChamber = 3
)

// Calibration option bits. The firmware reads these exact positions.
const (
	calBitBedLevelling           = 1 << 1
	calBitVibrationCompensation  = 1 << 2
	calBitMotorNoiseCancellation = 1 << 3
)

func lightPayload(on bool) Raw {
	mode := "off"
	if on {
		mode = "on"
	}
	return Raw{"system": map[string]any{"led_mode": mode}}
}

func gcodePayload(line string) Raw {
	return Raw{"print": map[string]any{"command": "gcode_line", "param": line}}
}

func speedLevelPayload(level int) Raw {
	return Raw{"print": map[string]any{"command": "print_speed", "param": strconv.Itoa(level)}}
}

func bedTempPayload(temperature int) Raw {
	return gcodePayload(fmt.Sprintf("M140 S%d\n", temperature))
}

func extruderTempPayload(temperature int) Raw {
	return gcodePayload(fmt.Sprintf("M104 S%d\n", temperature))
}

func fanSpeedPayload(speed, fanNum int) Raw {
	return gcodePayload(fmt.Sprintf("M106 P%d S%d\n", fanNum, speed))
}

// moveAxisPayload renders a single relative move: switch to relative
// positioning, move one axis, restore absolute positioning.
func moveAxisPayload(axis string, mm int) Raw {
	return gcodePayload(fmt.Sprintf("G91\nG0 %s%d\nG90\n", axis, mm))
}

func homePayload() Raw {
	return gcodePayload("G28\n")
}

func stopPayload() Raw {
	return Raw{"print": map[string]any{"command": "stop"}}
}

func pausePayload() Raw {
	return Raw{"print": map[string]any{"command": "pause"}}
}

func resumePayload() Raw {
	return Raw{"print": map[string]any{"command": "resume"}}
}

// PushAll is the full-status request. The aggregator publishes it on every
// (re)connect and again after each inbound report.
func PushAll() Raw {
	return Raw{
		"pushing": map[string]any{"sequence_id": 0, "command": "pushall"},
		"user_id": "1234567890",
	}
}

func filamentLoadPayload() Raw {
	return Raw{
		"print": map[string]any{
			"command":   "ams_change_filament",
			"target":    255,
			"curr_temp": 215,
			"tar_temp":  215,
		},
	}
}

func filamentUnloadPayload() Raw {
	return Raw{
		"print": map[string]any{
			"command":   "ams_change_filament",
			"target":    254,
			"curr_temp": 215,
			"tar_temp":  215,
		},
	}
}

func calibrationPayload(bedLevelling, motorNoiseCancellation, vibrationCompensation bool) Raw {
	bitmask := 0

	if bedLevelling {
		bitmask |= calBitBedLevelling
	}
	if vibrationCompensation {
		bitmask |= calBitVibrationCompensation
	}
	if motorNoiseCancellation {
		bitmask |= calBitMotorNoiseCancellation
	}

	return Raw{"print": map[string]any{"command": "calibration", "option": bitmask}}
}

// startPrintFilePayload targets the fixed in-archive gcode path. The
// capability flags are protocol constants, not user choices.
func startPrintFilePayload(filename string) Raw {
	return Raw{
		"print": map[string]any{
			"command":        "project_file",
			"param":          "Metadata/plate_1.gcode",
			"subtask_name":   filename,
			"url":            fmt.Sprintf("ftp://%s", filename),
			"bed_type":       "auto",
			"timelapse":      false,
			"bed_leveling":   true,
			"flow_cali":      false,
			"vibration_cali": true,
			"layer_inspect":  false,
			"use_ams":        false,
			"profile_id":     "0",
			"project_id":     "0",
			"subtask_id":     "0",
			"task_id":        "0",
		},
	}
}

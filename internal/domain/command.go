package domain

import "strings"

// Command is a control token sent by the display client.
type Command string

const (
	CmdStartSampling Command = "START_SAMPLING"
	CmdStopSampling  Command = "STOP_SAMPLING"
	CmdSaveInflux    Command = "SAVE_INFLUX"
	CmdSaveDatabase  Command = "SAVE_DATABASE"
)

// ParseCommand normalizes a raw command payload.
func ParseCommand(payload string) Command {
	return Command(strings.ToUpper(strings.TrimSpace(payload)))
}

// IsDeviceCommand reports whether c is forwarded verbatim to the device.
func (c Command) IsDeviceCommand() bool {
	return c == CmdStartSampling || c == CmdStopSampling
}

// IsSweep reports whether c requests a bulk persistence sweep.
func (c Command) IsSweep() bool {
	return c == CmdSaveInflux || c == CmdSaveDatabase
}

func (c Command) String() string { return string(c) }

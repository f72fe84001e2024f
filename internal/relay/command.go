package relay

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
)

// Command names understood by the relay and the field devices.
const (
	CmdSetRGB          = "set_rgb"
	CmdNightMode       = "night_mode"
	CmdForceSend       = "force_send"
	CmdFanSetThreshold = "fan_set_threshold"
	CmdFanForce        = "fan_force"
)

// Bounds applied by the command builders.
const (
	MinThreshold = 10.0
	MaxThreshold = 60.0
	MinHyst      = 0.0
	MaxHyst      = 10.0

	DefaultThreshold = 27.0
	DefaultHyst      = 1.0
)

// Default LED color offered by the dashboard form.
var DefaultRGB = [3]int{0, 120, 255}

// Payload is the free-form JSON object sent to a node. The "cmd" key names the command.
type Payload map[string]any

// Name returns the payload's command name, or "" if it has none.
func (p Payload) Name() string {
	name, _ := p["cmd"].(string)
	return name
}

// SetRGB sets the node's LED color. Each channel is clamped to 0-255.
func SetRGB(r, g, b int) Payload {
	return Payload{"cmd": CmdSetRGB, "r": clampInt(r, 0, 255), "g": clampInt(g, 0, 255), "b": clampInt(b, 0, 255)}
}

// NightMode turns the node's night mode on or off.
func NightMode(enable bool) Payload {
	return Payload{"cmd": CmdNightMode, "enable": enable}
}

// ForceSend asks the node to publish a reading immediately.
func ForceSend() Payload {
	return Payload{"cmd": CmdForceSend}
}

// FanThreshold sets the fan's switch-on temperature and hysteresis in °C.
// Threshold is clamped to 10-60 and hysteresis to 0-10.
func FanThreshold(threshold, hyst float64) Payload {
	return Payload{
		"cmd":       CmdFanSetThreshold,
		"threshold": clampFloat(threshold, MinThreshold, MaxThreshold),
		"hyst":      clampFloat(hyst, MinHyst, MaxHyst),
	}
}

// FanForce forces the fan on or off.
func FanForce(enable bool) Payload {
	return Payload{"cmd": CmdFanForce, "enable": enable}
}

// CommandNames lists the commands ParseCommand accepts, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(commandArgs))
	for name := range commandArgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var commandArgs = map[string]string{
	CmdSetRGB:          "<r> <g> <b>",
	CmdNightMode:       "<on|off>",
	CmdForceSend:       "",
	CmdFanSetThreshold: "<threshold> [hyst]",
	CmdFanForce:        "<on|off>",
}

// Usage returns the argument synopsis of a command.
func Usage(name string) string {
	return strings.TrimSpace(name + " " + commandArgs[name])
}

// ParseCommand builds a payload from a command name and its textual arguments,
// as typed on the command line.
func ParseCommand(name string, args []string) (Payload, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	synopsis, known := commandArgs[name]
	if !known {
		return nil, zderrors.New(zderrors.ErrRelay,
			fmt.Sprintf("Unknown command %q", name),
			"Available commands: "+strings.Join(CommandNames(), ", "))
	}

	usageErr := func(cause error) error {
		msg := "Usage: " + strings.TrimSpace(name+" "+synopsis)
		if cause == nil {
			return zderrors.New(zderrors.ErrRelay, msg, "")
		}
		return zderrors.WrapWithCode(cause, zderrors.ErrRelay, msg, "")
	}

	switch name {
	case CmdSetRGB:
		if len(args) != 3 {
			return nil, usageErr(nil)
		}
		var rgb [3]int
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return nil, usageErr(err)
			}
			rgb[i] = v
		}
		return SetRGB(rgb[0], rgb[1], rgb[2]), nil

	case CmdNightMode, CmdFanForce:
		if len(args) != 1 {
			return nil, usageErr(nil)
		}
		on, err := parseSwitch(args[0])
		if err != nil {
			return nil, usageErr(err)
		}
		if name == CmdNightMode {
			return NightMode(on), nil
		}
		return FanForce(on), nil

	case CmdForceSend:
		if len(args) != 0 {
			return nil, usageErr(nil)
		}
		return ForceSend(), nil

	case CmdFanSetThreshold:
		if len(args) < 1 || len(args) > 2 {
			return nil, usageErr(nil)
		}
		threshold, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, usageErr(err)
		}
		hyst := DefaultHyst
		if len(args) == 2 {
			if hyst, err = strconv.ParseFloat(args[1], 64); err != nil {
				return nil, usageErr(err)
			}
		}
		return FanThreshold(threshold, hyst), nil
	}

	return nil, usageErr(nil)
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes", "enable":
		return true, nil
	case "off", "false", "0", "no", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

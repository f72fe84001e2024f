package relay

import (
	"math"
	"testing"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  Payload
		want Payload
	}{
		{"rgb in range", SetRGB(0, 120, 255), Payload{"cmd": "set_rgb", "r": 0, "g": 120, "b": 255}},
		{"rgb clamped", SetRGB(-5, 300, 128), Payload{"cmd": "set_rgb", "r": 0, "g": 255, "b": 128}},
		{"night on", NightMode(true), Payload{"cmd": "night_mode", "enable": true}},
		{"force send", ForceSend(), Payload{"cmd": "force_send"}},
		{"threshold", FanThreshold(27, 1), Payload{"cmd": "fan_set_threshold", "threshold": 27.0, "hyst": 1.0}},
		{"threshold clamped", FanThreshold(80, -2), Payload{"cmd": "fan_set_threshold", "threshold": 60.0, "hyst": 0.0}},
		{"threshold low", FanThreshold(2, 15), Payload{"cmd": "fan_set_threshold", "threshold": 10.0, "hyst": 10.0}},
		{"threshold nan", FanThreshold(math.NaN(), 1), Payload{"cmd": "fan_set_threshold", "threshold": 10.0, "hyst": 1.0}},
		{"fan off", FanForce(false), Payload{"cmd": "fan_force", "enable": false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestPayloadName(t *testing.T) {
	assert.Equal(t, "force_send", ForceSend().Name())
	assert.Equal(t, "", Payload{}.Name())
	assert.Equal(t, "", Payload{"cmd": 3}.Name())
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		args    []string
		want    Payload
		wantErr bool
	}{
		{"rgb", "set_rgb", []string{"0", "120", "255"}, SetRGB(0, 120, 255), false},
		{"rgb clamps", "SET_RGB", []string{"-1", "999", "7"}, SetRGB(0, 255, 7), false},
		{"rgb arity", "set_rgb", []string{"1", "2"}, nil, true},
		{"rgb not a number", "set_rgb", []string{"a", "2", "3"}, nil, true},
		{"night on", "night_mode", []string{"on"}, NightMode(true), false},
		{"night off", "night_mode", []string{"false"}, NightMode(false), false},
		{"night bad", "night_mode", []string{"maybe"}, nil, true},
		{"force send", "force_send", nil, ForceSend(), false},
		{"force send extra", "force_send", []string{"x"}, nil, true},
		{"threshold default hyst", "fan_set_threshold", []string{"28.5"}, FanThreshold(28.5, DefaultHyst), false},
		{"threshold with hyst", "fan_set_threshold", []string{"30", "2"}, FanThreshold(30, 2), false},
		{"threshold bad", "fan_set_threshold", []string{"hot"}, nil, true},
		{"fan on", "fan_force", []string{"1"}, FanForce(true), false},
		{"unknown", "reboot", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.cmd, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, zderrors.IsCode(err, zderrors.ErrRelay))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandNamesAndUsage(t *testing.T) {
	assert.Equal(t, []string{"fan_force", "fan_set_threshold", "force_send", "night_mode", "set_rgb"}, CommandNames())
	assert.Equal(t, "set_rgb <r> <g> <b>", Usage(CmdSetRGB))
	assert.Equal(t, "force_send", Usage(CmdForceSend))
}

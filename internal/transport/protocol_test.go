package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand_Literals(t *testing.T) {
	assert.Equal(t, CommandRunSimulation, ParseCommand("run_simulation").Command)
	assert.Equal(t, CommandStopSimulation, ParseCommand("stop_simulation").Command)
	assert.Equal(t, CommandEnableOverlap, ParseCommand("enable_overlap").Command)
	assert.Equal(t, CommandDisableOverlap, ParseCommand("disable_overlap").Command)
}

func TestParseCommand_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, CommandRunSimulation, ParseCommand("  run_simulation \n").Command)
}

func TestParseCommand_SetParam(t *testing.T) {
	p := ParseCommand("set_spread:0.25")
	assert.Equal(t, CommandSetParam, p.Command)
	assert.Equal(t, "spread", p.Param)
	assert.Equal(t, "0.25", p.Value)
}

func TestParseCommand_SetParamMissingColonIsUnknown(t *testing.T) {
	assert.Equal(t, CommandUnknown, ParseCommand("set_spread").Command)
}

func TestParseCommand_Unknown(t *testing.T) {
	assert.Equal(t, CommandUnknown, ParseCommand("do_a_barrel_roll").Command)
}

func TestNewUpdateMessage_CarriesSchemaVersion(t *testing.T) {
	msg := NewUpdateMessage("run-1", 5, nil, nil)
	assert.Equal(t, 1, msg.SchemaVersion)
	assert.Equal(t, "simulation_update", msg.Type)
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, 5, msg.Iteration)
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("run-1", "boom")
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "boom", msg.Error)
}

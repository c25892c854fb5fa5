// Package transport is the thin boundary between a run's core loop
// and the outside world: a websocket command/status protocol hosted
// by a small gin server, with one goroutine per active simulation run.
package transport

import (
	"strconv"
	"strings"
)

// ClientCommand is a parsed inbound command.
type ClientCommand int

const (
	CommandUnknown ClientCommand = iota
	CommandRunSimulation
	CommandStopSimulation
	CommandEnableOverlap
	CommandDisableOverlap
	CommandSetParam
)

const schemaVersion = 1

// ParsedCommand is the result of parsing one inbound text command.
type ParsedCommand struct {
	Command ClientCommand
	Param   string
	Value   string
}

// ParseCommand parses one line of the inbound protocol:
// "run_simulation", "stop_simulation", "enable_overlap",
// "disable_overlap", or "set_<param>:<value>".
func ParseCommand(raw string) ParsedCommand {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "run_simulation":
		return ParsedCommand{Command: CommandRunSimulation}
	case "stop_simulation":
		return ParsedCommand{Command: CommandStopSimulation}
	case "enable_overlap":
		return ParsedCommand{Command: CommandEnableOverlap}
	case "disable_overlap":
		return ParsedCommand{Command: CommandDisableOverlap}
	}

	if strings.HasPrefix(raw, "set_") {
		rest := strings.TrimPrefix(raw, "set_")
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) == 2 {
			return ParsedCommand{Command: CommandSetParam, Param: parts[0], Value: parts[1]}
		}
	}

	return ParsedCommand{Command: CommandUnknown}
}

// StatusMessage is the outbound JSON envelope for a worker's status
// updates.
type StatusMessage struct {
	SchemaVersion int                    `json:"schema_version"`
	Type          string                 `json:"type"`
	RunID         string                 `json:"run_id"`
	Iteration     int                    `json:"iteration,omitempty"`
	Trades        []TradeMessage         `json:"trades,omitempty"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// TradeMessage is one trade as rendered to a websocket client.
type TradeMessage struct {
	Side  string  `json:"side"`
	Price float64 `json:"price"`
	Size  int     `json:"size"`
}

// NewUpdateMessage builds a "simulation_update" status message.
func NewUpdateMessage(runID string, iteration int, trades []TradeMessage, metrics map[string]interface{}) StatusMessage {
	return StatusMessage{
		SchemaVersion: schemaVersion,
		Type:          "simulation_update",
		RunID:         runID,
		Iteration:     iteration,
		Trades:        trades,
		Metrics:       metrics,
	}
}

// NewStatusMessage builds a lifecycle status message whose type is
// kind (e.g. "simulation_started", "simulation_stopped"). Rejections
// are sent as error messages instead.
func NewStatusMessage(runID, kind string) StatusMessage {
	return StatusMessage{SchemaVersion: schemaVersion, Type: kind, RunID: runID}
}

// NewErrorMessage builds an error status message.
func NewErrorMessage(runID, errMsg string) StatusMessage {
	return StatusMessage{SchemaVersion: schemaVersion, Type: "error", RunID: runID, Error: errMsg}
}

func parseFloatParam(value string) (float64, bool) {
	f, err := strconv.ParseFloat(value, 64)
	return f, err == nil
}

package simulate

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/teranos/popidx/logger"
	"github.com/teranos/popidx/pop/types"
)

// Progress receives stage announcements while a simulation runs.
//
// Implementations include:
// - CLIEmitter: pretty-printed terminal output using pterm
// - JSONEmitter: one JSON event per line for scripted runs
type Progress interface {
	EmitStage(stage string, message string)
	EmitIndex(key types.Key, filter string, members int)
	EmitCheckpoint(step int, divergences int)
	EmitComplete(r *Report)
}

type nopProgress struct{}

func (nopProgress) EmitStage(string, string)         {}
func (nopProgress) EmitIndex(types.Key, string, int) {}
func (nopProgress) EmitCheckpoint(int, int)          {}
func (nopProgress) EmitComplete(*Report)             {}

// CLIEmitter outputs progress to the terminal using pterm
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter creates a CLI progress emitter for terminal output
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

// EmitStage prints a stage announcement
func (e *CLIEmitter) EmitStage(stage string, message string) {
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
}

// EmitIndex prints a registered index at -v and above
func (e *CLIEmitter) EmitIndex(key types.Key, filter string, members int) {
	if !logger.ShouldOutput(e.verbosity, logger.OutputIndexes) {
		return
	}
	pterm.Printf("  %s %s (%d members) %s\n", pterm.Gray("+"), pterm.LightCyan(string(key)), members, pterm.Gray(filter))
}

// EmitCheckpoint prints a checkpoint line at -v and above, or always when an index diverged
func (e *CLIEmitter) EmitCheckpoint(step int, divergences int) {
	if divergences > 0 {
		pterm.Warning.Printf("Step %d: %d indexes diverge from scan\n", step, divergences)
		return
	}
	if logger.ShouldOutput(e.verbosity, logger.OutputProgress) {
		pterm.Printf("  %s step %s\n", pterm.Gray("✓"), pterm.Green(fmt.Sprintf("%d", step)))
	}
}

// EmitComplete prints the completion summary
func (e *CLIEmitter) EmitComplete(r *Report) {
	if r.OK() {
		pterm.Success.Printf("%d steps, %d checkpoints, all indexes exact (%s)\n",
			r.Steps, r.Checkpoints, r.Elapsed.Round(time.Millisecond))
		return
	}
	pterm.Error.Printf("%d divergences over %d checkpoints\n", r.Divergences, r.Checkpoints)
}

// ProgressEvent is a structured JSON progress event
type ProgressEvent struct {
	Type      string                 `json:"type"` // "stage", "index", "checkpoint", "complete"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// JSONEmitter outputs one JSON event per line
type JSONEmitter struct {
	encoder *json.Encoder
}

// NewJSONEmitter creates a JSON progress emitter writing to w
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(w)}
}

func (e *JSONEmitter) emit(typ string, data map[string]interface{}) {
	e.encoder.Encode(ProgressEvent{Type: typ, Timestamp: time.Now(), Data: data})
}

// EmitStage emits a stage event
func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{"stage": stage, "message": message})
}

// EmitIndex emits an index registration event
func (e *JSONEmitter) EmitIndex(key types.Key, filter string, members int) {
	e.emit("index", map[string]interface{}{"key": key, "filter": filter, "members": members})
}

// EmitCheckpoint emits a checkpoint event
func (e *JSONEmitter) EmitCheckpoint(step int, divergences int) {
	e.emit("checkpoint", map[string]interface{}{"step": step, "divergences": divergences})
}

// EmitComplete emits the full report
func (e *JSONEmitter) EmitComplete(r *Report) {
	e.emit("complete", map[string]interface{}{"report": r})
}

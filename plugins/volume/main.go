// Command volume is the Airpoint volume plugin. It reads one request from
// stdin and answers on stdout.
//
//	range      -> {"min": -65.25, "max": 0}
//	set-level  {"level": -20} sets the master volume to that level
//
// Levels are in dB-like units where 0 is full volume. PulseAudio/PipeWire
// (pactl) takes the level in dB; macOS (osascript) only has a 0..100 scale,
// so the level is mapped linearly onto it.
package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// minLevel is the bottom of the reported range.
const minLevel = -65.25

type Request struct {
	Action string              `json:"action"`
	Params jsoniter.RawMessage `json:"params"`
}

type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type levelParams struct {
	Level *float64 `json:"level"`
}

type levelRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// backend is the OS-specific volume control.
type backend interface {
	check() error
	setLevel(level float64) error
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeError(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	b, err := newBackend()
	if err != nil {
		writeError(err.Error())
		return
	}

	switch req.Action {
	case "range":
		if err := b.check(); err != nil {
			writeError(fmt.Sprintf("no audio endpoint: %v", err))
			return
		}
		writeSuccess(levelRange{Min: minLevel, Max: 0})
	case "set-level":
		var p levelParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Level == nil {
			writeError("set-level needs a numeric level")
			return
		}
		if err := b.setLevel(*p.Level); err != nil {
			writeError(fmt.Sprintf("set-level failed: %v", err))
			return
		}
		writeSuccess(nil)
	default:
		writeError(fmt.Sprintf("unknown action: %s", req.Action))
	}
}

func newBackend() (backend, error) {
	switch runtime.GOOS {
	case "linux":
		return pactl{}, nil
	case "darwin":
		return appleScript{}, nil
	}
	return nil, fmt.Errorf("volume control is not supported on %s", runtime.GOOS)
}

func writeError(msg string) {
	_ = json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: msg})
}

func writeSuccess(data interface{}) {
	_ = json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

func run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(out))
	}
	return nil
}

type pactl struct{}

func (pactl) check() error {
	return run("pactl", "get-sink-volume", "@DEFAULT_SINK@")
}

func (pactl) setLevel(level float64) error {
	if level > 0 {
		return errors.New("level above 0 dB")
	}
	return run("pactl", "set-sink-volume", "@DEFAULT_SINK@", strconv.FormatFloat(level, 'f', 2, 64)+"dB")
}

type appleScript struct{}

func (appleScript) check() error {
	return run("osascript", "-e", "output volume of (get volume settings)")
}

func (appleScript) setLevel(level float64) error {
	return run("osascript", "-e", fmt.Sprintf("set volume output volume %d", percent(level)))
}

// percent maps [minLevel, 0] onto 0..100. Levels below the minimum are muted.
func percent(level float64) int {
	p := 100 * (1 - level/minLevel)
	return int(math.Round(math.Max(0, math.Min(100, p))))
}

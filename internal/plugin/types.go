// Package plugin discovers helper executables and talks to them with one JSON
// request on stdin and one JSON response on stdout.
package plugin

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manifest is the plugin.json file that sits next to each plugin executable.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin.
type Request struct {
	Action string              `json:"action"`
	Params jsoniter.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

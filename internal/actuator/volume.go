package actuator

import (
	"context"
	"fmt"

	"github.com/ayusman/airpoint/internal/control"
	"github.com/ayusman/airpoint/internal/plugin"
)

// Volume plugin actions.
const (
	ActionRange    = "range"
	ActionSetLevel = "set-level"
)

// PluginVolume is a control.Volume backed by a volume plugin executable.
type PluginVolume struct {
	executor *plugin.Executor
	plugin   *plugin.Plugin
}

var _ control.Volume = (*PluginVolume)(nil)

// NewPluginVolume looks up the named plugin and checks that it supports the
// range and set-level actions.
func NewPluginVolume(mgr *plugin.Manager, name string, executor *plugin.Executor) (*PluginVolume, error) {
	p, err := mgr.Get(name)
	if err != nil {
		return nil, err
	}
	for _, action := range []string{ActionRange, ActionSetLevel} {
		if !p.Manifest.Supports(action) {
			return nil, fmt.Errorf("plugin %s does not support %q", name, action)
		}
	}
	return &PluginVolume{executor: executor, plugin: p}, nil
}

func (v *PluginVolume) Range() (control.VolumeRange, error) {
	var r control.VolumeRange
	if err := v.executor.Call(context.Background(), v.plugin, ActionRange, nil, &r); err != nil {
		return control.VolumeRange{}, fmt.Errorf("query volume range: %w", err)
	}
	return r, nil
}

func (v *PluginVolume) SetLevel(level float64) error {
	params := struct {
		Level float64 `json:"level"`
	}{level}
	return v.executor.Call(context.Background(), v.plugin, ActionSetLevel, params, nil)
}

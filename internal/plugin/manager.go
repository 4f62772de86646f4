package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrPluginNotFound is returned when no discovered plugin has the requested name.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager holds the plugins found under one directory.
type Manager struct {
	pluginDir string
	logger    *zap.Logger

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager for pluginDir.
func NewManager(pluginDir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		pluginDir: pluginDir,
		logger:    logger.Named("plugin"),
		plugins:   make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. Every subdirectory holding a
// readable plugin.json is a plugin; broken manifests are logged and skipped.
// A missing directory yields no plugins.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	info, err := os.Stat(m.pluginDir)
	switch {
	case os.IsNotExist(err):
		m.replace(found)
		return nil
	case err != nil:
		return fmt.Errorf("stat plugin dir: %w", err)
	case !info.IsDir():
		m.replace(found)
		return nil
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.pluginDir, entry.Name())
		p, err := load(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			m.logger.Warn("Skipping plugin", zap.String("dir", dir), zap.Error(err))
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.replace(found)
	m.logger.Debug("Plugins discovered", zap.String("dir", m.pluginDir), zap.Int("count", len(found)))
	return nil
}

func load(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, "plugin.json"))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = plugins
}

// Get returns the plugin called name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// List returns the discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Manifest.Name < plugins[j].Manifest.Name })
	return plugins
}

func (m *Manager) PluginDir() string {
	return m.pluginDir
}

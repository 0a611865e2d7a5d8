// Package plugin implements explicit, dependency-ordered plugin loading.
// Nothing is discovered implicitly: plugins are added to a Manager, loaded
// by name (pulling their dependencies in first) and attached to a network
// through its capability context.
package plugin

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chireiden/shanghai/event"
	"github.com/chireiden/shanghai/network"
)

// Plugin is a named bundle of event handlers with declared dependencies.
type Plugin interface {
	Name() string
	Depends() []string
	Handlers(ctx *network.Context) []event.Handler
}

// Manager tracks added plugins and resolves load order. There is no
// global instance; every caller builds its own.
type Manager struct {
	log     *zap.SugaredLogger
	plugins map[string]Plugin
	order   []string
	loaded  map[string]bool
	loading map[string]bool
}

// NewManager returns an empty manager.
func NewManager(log *zap.SugaredLogger) *Manager {
	return &Manager{
		log:     log,
		plugins: make(map[string]Plugin),
		loaded:  make(map[string]bool),
		loading: make(map[string]bool),
	}
}

// Add registers a plugin under its name without loading it.
func (m *Manager) Add(p Plugin) error {
	name := p.Name()
	if _, ok := m.plugins[name]; ok {
		return fmt.Errorf("plugin: %q already added", name)
	}
	m.plugins[name] = p
	return nil
}

// Load marks a plugin loaded, loading its dependencies first. Cycles and
// unknown names are errors.
func (m *Manager) Load(name string) error {
	if m.loaded[name] {
		return nil
	}
	if m.loading[name] {
		return fmt.Errorf("plugin: dependency cycle through %q", name)
	}
	p, ok := m.plugins[name]
	if !ok {
		return fmt.Errorf("plugin: unknown plugin %q", name)
	}

	m.loading[name] = true
	defer delete(m.loading, name)
	for _, dep := range p.Depends() {
		if err := m.Load(dep); err != nil {
			return fmt.Errorf("plugin: loading %q: %w", name, err)
		}
	}

	m.loaded[name] = true
	m.order = append(m.order, name)
	m.log.Debugw("plugin loaded", "plugin", name)
	return nil
}

// LoadAll loads every added plugin.
func (m *Manager) LoadAll() error {
	for name := range m.plugins {
		if err := m.Load(name); err != nil {
			return err
		}
	}
	return nil
}

// Loaded returns the plugin names in load order.
func (m *Manager) Loaded() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Attach registers the handlers of every loaded plugin, in load order,
// with the network behind ctx.
func (m *Manager) Attach(ctx *network.Context) error {
	for _, name := range m.order {
		for _, h := range m.plugins[name].Handlers(ctx) {
			if err := ctx.Register(h); err != nil {
				return fmt.Errorf("plugin: attaching %q: %w", name, err)
			}
		}
	}
	return nil
}

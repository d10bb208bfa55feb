package ecosystem

import (
	"fmt"

	"github.com/samber/lo"
)

// Registry is an ordered plugin list. Order decides which plugin claims a
// directory that several would detect, so specific ecosystems are
// registered before generic ones.
type Registry struct {
	plugins []Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry registers every built-in ecosystem.
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	for _, newPlugin := range []func(Deps) Plugin{
		NewReactNative, // before nodejs: both claim package.json
		NewNodeJS,
		NewRust,
		NewXcode,
		NewPython,
		NewDocker,
		NewGo,
		NewAndroid, // before java: both claim build.gradle
		NewRuby,
		NewPHP,
		NewJava,
		NewElixir,
		NewDotNet,
	} {
		// Built-in ids are unique.
		_ = r.Register(newPlugin(deps))
	}
	return r
}

// Register appends p. Registering an id twice is an error.
func (r *Registry) Register(p Plugin) error {
	id := p.Descriptor().ID
	if _, ok := r.Get(id); ok {
		return fmt.Errorf("ecosystem %q already registered", id)
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Resolve returns the first enabled plugin, in registration order, that
// detects path as a project root.
func (r *Registry) Resolve(path string, enabled []ID) (ID, bool) {
	for _, p := range r.plugins {
		id := p.Descriptor().ID
		if !lo.Contains(enabled, id) {
			continue
		}
		if p.Detect(path) {
			return id, true
		}
	}
	return "", false
}

// Get returns the plugin registered under id.
func (r *Registry) Get(id ID) (Plugin, bool) {
	return lo.Find(r.plugins, func(p Plugin) bool {
		return p.Descriptor().ID == id
	})
}

// List returns every descriptor in registration order.
func (r *Registry) List() []Descriptor {
	return lo.Map(r.plugins, func(p Plugin, _ int) Descriptor {
		return p.Descriptor()
	})
}

// IDs returns every registered id in registration order.
func (r *Registry) IDs() []ID {
	return lo.Map(r.plugins, func(p Plugin, _ int) ID {
		return p.Descriptor().ID
	})
}

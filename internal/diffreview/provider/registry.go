package provider

import (
	"fmt"
	"sync"
)

// Config is the provider-specific configuration blob passed to a Factory;
// each provider package interprets its own keys.
type Config map[string]any

// Factory constructs a Provider from its configuration.
type Factory func(cfg Config) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register registers a provider factory under name, typically called from
// a concrete provider package's init(). Registering the same name twice
// overwrites the earlier factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Create constructs the named provider. Returns an error if name was never
// registered.
func Create(name string, cfg Config) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider not registered: %s", name)
	}
	return factory(cfg)
}

// Registered reports whether name has a registered factory.
func Registered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

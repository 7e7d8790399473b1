package connect

import (
	"fmt"
	"sync"
)

// Factory crea una instancia de provider desde su config.
type Factory func(cfg Config) (Provider, error)

// Registry mantiene factories e instancias por provider id.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
	}
}

// RegisterFactory registra la factory de un provider. Llamar en el arranque.
func (r *Registry) RegisterFactory(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Configure construye y cachea la instancia del provider con su config.
func (r *Registry) Configure(name string, cfg Config) error {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	p, err := f(cfg)
	if err != nil {
		return fmt.Errorf("configurar provider %s: %w", name, err)
	}
	r.mu.Lock()
	r.instances[name] = p
	r.mu.Unlock()
	return nil
}

// Get devuelve la instancia configurada del provider.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Available lista los providers configurados.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	return names
}

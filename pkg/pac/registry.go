package pac

import (
	"fmt"
	"sort"
	"sync"
)

// Factory construye un adaptador a partir del perfil del emisor (credenciales
// y ambiente). Cada proveedor registra la suya al arrancar la aplicación.
type Factory func(profile Profile) (Adapter, error)

// Registry resuelve el adaptador PAC configurado en el perfil del emisor.
// Falla cerrado: proveedor desconocido o perfil inactivo es un error, nunca
// un adaptador por defecto — un tenant mal configurado no debe emitir por un
// proveedor equivocado.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry crea un registro vacío.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register asocia un nombre de proveedor con su factory. Registrar dos veces
// el mismo nombre reemplaza la anterior (útil en tests).
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Providers devuelve los nombres registrados, ordenados.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve instancia el adaptador del perfil. Error si el perfil está
// inactivo, el proveedor está vacío o no hay factory registrada.
func (r *Registry) Resolve(profile Profile) (Adapter, error) {
	if !profile.Active {
		return nil, fmt.Errorf("pac: el perfil de emisor está inactivo")
	}
	if profile.Provider == "" {
		return nil, fmt.Errorf("pac: el perfil no tiene proveedor configurado")
	}
	r.mu.RLock()
	factory, ok := r.factories[profile.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("pac: proveedor desconocido %q", profile.Provider)
	}
	adapter, err := factory(profile)
	if err != nil {
		return nil, fmt.Errorf("pac: instanciar proveedor %q: %w", profile.Provider, err)
	}
	return adapter, nil
}

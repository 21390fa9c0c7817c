package nodes

import (
	"sort"
	"sync"

	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
)

// Registry holds the node catalog. It is an explicitly constructed value
// handed to the components that need it; after startup the table is
// effectively read-only and safe for concurrent readers.
type Registry struct {
	defs   map[string]NodeDefinition
	mutex  sync.RWMutex
	logger logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		defs:   make(map[string]NodeDefinition),
		logger: log,
	}
}

// NewCatalogRegistry creates a registry pre-populated with the ChainReact
// integration catalog.
func NewCatalogRegistry(log logger.Logger) *Registry {
	registry := NewRegistry(log)
	if err := registry.Register(Catalog()...); err != nil {
		// The built-in catalog is statically valid; an error here means the
		// catalog table itself is broken.
		log.Error("Failed to register built-in catalog", "error", err)
	}
	return registry
}

// Register adds definitions to the registry. Registration is idempotent:
// a type that is already present is skipped, so re-registering the catalog
// is a no-op. First registration wins.
func (r *Registry) Register(defs ...NodeDefinition) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, def := range defs {
		if def.Type == "" {
			return errors.NewValidationError("node type is required")
		}
		if def.Title == "" {
			return errors.NewValidationError("node title is required for " + def.Type)
		}
		if def.Category == "" {
			return errors.NewValidationError("node category is required for " + def.Type)
		}
		if _, exists := r.defs[def.Type]; exists {
			r.logger.Debug("Node type already registered, keeping existing definition",
				"type", def.Type,
			)
			continue
		}
		r.defs[def.Type] = def.Clone()
	}

	return nil
}

// Get retrieves a definition by type. The returned value is a copy.
func (r *Registry) Get(nodeType string) (NodeDefinition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	def, exists := r.defs[nodeType]
	if !exists {
		return NodeDefinition{}, errors.Newf(errors.ErrorTypeNode, errors.CodeUnknownNodeType,
			"unknown node type %q", nodeType)
	}
	return def.Clone(), nil
}

// Has reports whether a type is registered.
func (r *Registry) Has(nodeType string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.defs[nodeType]
	return exists
}

// List returns all definitions matching the filter, sorted by type.
func (r *Registry) List(filter Filter) []NodeDefinition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	defs := make([]NodeDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		if matchesFilter(def, filter) {
			defs = append(defs, def.Clone())
		}
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Type < defs[j].Type
	})

	return defs
}

// Triggers returns the trigger definitions, excluding logic and ui entries.
// With availableOnly set, comingSoon triggers are excluded as well.
func (r *Registry) Triggers(availableOnly bool) []NodeDefinition {
	return r.List(Filter{TriggersOnly: true, AvailableOnly: availableOnly})
}

// Actions returns the action definitions, excluding logic and ui entries.
// With availableOnly set, comingSoon actions are excluded as well.
func (r *Registry) Actions(availableOnly bool) []NodeDefinition {
	return r.List(Filter{ActionsOnly: true, AvailableOnly: availableOnly})
}

// Providers returns the distinct provider ids present in the registry,
// sorted alphabetically. Generic nodes contribute no provider.
func (r *Registry) Providers() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	seen := make(map[string]bool)
	for _, def := range r.defs {
		if def.ProviderID != "" {
			seen[def.ProviderID] = true
		}
	}

	providers := make([]string, 0, len(seen))
	for provider := range seen {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	return providers
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.defs)
}

func matchesFilter(def NodeDefinition, filter Filter) bool {
	if filter.Category != "" && def.Category != filter.Category {
		return false
	}
	if filter.ProviderID != "" && def.ProviderID != filter.ProviderID {
		return false
	}
	if filter.TriggersOnly && def.Category != CategoryTrigger {
		return false
	}
	if filter.ActionsOnly && def.Category != CategoryAction {
		return false
	}
	if filter.AvailableOnly && def.ComingSoon {
		return false
	}
	return true
}

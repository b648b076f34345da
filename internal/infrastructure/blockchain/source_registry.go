package blockchain

import (
	"sync"

	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/internal/usecases"
)

// SourceRegistry holds one transfer source per supported network. It is the
// explicit replacement for a module-level client singleton: constructed in
// main and handed to the monitor.
type SourceRegistry struct {
	sources map[entities.Network]usecases.TransferSource
	mu      sync.RWMutex
}

func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{sources: make(map[entities.Network]usecases.TransferSource)}
}

// Register adds or replaces the source for its network.
func (r *SourceRegistry) Register(s usecases.TransferSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Network()] = s
}

// Source returns the adapter for a network.
func (r *SourceRegistry) Source(network entities.Network) (usecases.TransferSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[network]
	return s, ok
}

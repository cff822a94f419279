package capability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sentinelops/sentinel-ai/internal/metrics"
)

// Registry holds the capabilities available to the workflow, keyed by
// their Name. Registration happens at startup; lookups are concurrent.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Name]Capability
}

func NewRegistry() *Registry {
	return &Registry{capabilities: make(map[Name]Capability)}
}

// Register adds a capability. Registering the same name twice is a
// programming error and returns an error rather than silently replacing.
func (r *Registry) Register(c Capability) error {
	if c == nil {
		return fmt.Errorf("capability: cannot register nil capability")
	}
	name := c.Name()
	if !name.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.capabilities[name]; exists {
		return fmt.Errorf("capability: %s already registered", name)
	}
	r.capabilities[name] = c
	return nil
}

// Get returns the capability registered under name.
func (r *Registry) Get(name Name) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}
	return c, nil
}

// Names returns the names currently registered.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.capabilities))
	for _, n := range AllNames() {
		if _, ok := r.capabilities[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Invoke dispatches a request to the named capability and records
// invocation metrics. Execution failures are wrapped in ExecutionError.
func (r *Registry) Invoke(ctx context.Context, name Name, req Request) (*Response, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.Execute(ctx, req)
	metrics.CapabilityDuration.WithLabelValues(string(name)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CapabilityInvocations.WithLabelValues(string(name), "failure").Inc()
		return nil, &ExecutionError{Capability: name, Err: err}
	}
	metrics.CapabilityInvocations.WithLabelValues(string(name), "success").Inc()
	return resp, nil
}

package router

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ProviderStatus is the externally visible health of one provider.
type ProviderStatus struct {
	Available   bool      `json:"available"`
	LastChecked time.Time `json:"last_checked"`
	LastError   string    `json:"last_error,omitempty"`
}

// Health tracks transient provider availability. State lives only in this
// process and is rebuilt from live probes after a restart.
type Health struct {
	mu       sync.RWMutex
	statuses map[string]ProviderStatus

	// cooldown holds one entry per provider currently inside its cooldown
	// window; expiry is the signal to probe again.
	cooldown *gocache.Cache
}

func NewHealth(cooldown time.Duration) *Health {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Health{
		statuses: make(map[string]ProviderStatus),
		cooldown: gocache.New(cooldown, time.Minute),
	}
}

func (h *Health) MarkAvailable(name string) {
	h.cooldown.Delete(name)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[name] = ProviderStatus{
		Available:   true,
		LastChecked: time.Now(),
	}
}

func (h *Health) MarkUnavailable(name string, err error) {
	h.cooldown.Set(name, struct{}{}, gocache.DefaultExpiration)

	h.mu.Lock()
	defer h.mu.Unlock()
	status := ProviderStatus{
		Available:   false,
		LastChecked: time.Now(),
	}
	if err != nil {
		status.LastError = err.Error()
	}
	h.statuses[name] = status
}

// InCooldown reports whether the provider failed recently enough that it
// should be skipped rather than retried.
func (h *Health) InCooldown(name string) bool {
	_, found := h.cooldown.Get(name)
	return found
}

func (h *Health) Status(name string) ProviderStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statuses[name]
}

func (h *Health) Snapshot() map[string]ProviderStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]ProviderStatus, len(h.statuses))
	for name, status := range h.statuses {
		out[name] = status
	}
	return out
}

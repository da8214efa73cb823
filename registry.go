package profiler

import "sync"

// The registry is the single source of truth for which frames are
// profiled. Wrappers insert entries on first call; stack reconstruction
// keeps only frames whose identity resolves here.
var (
	registryMu sync.RWMutex
	registry   = map[string]string{}
)

// RegisterProfiledFunction records the display name shown for key in
// reconstructed stacks. A bare "New" key is dropped: it means a method
// registration is missing its type qualifier.
func RegisterProfiledFunction(key, displayName string) {
	if key == "New" {
		logger.Warn().Str("key", key).Msg("refusing unqualified method registration")
		return
	}
	registryMu.Lock()
	registry[key] = displayName
	registryMu.Unlock()
}

// IsProfiledFunction reports whether key has a registered display name.
func IsProfiledFunction(key string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[key]
	return ok
}

// RegisteredName returns the display name registered for key.
func RegisteredName(key string) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	name, ok := registry[key]
	return name, ok
}

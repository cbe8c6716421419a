package op

import "sync"

var defaultRegistry = sync.OnceValue(NewRegistry)

// Default returns the process-wide Registry, created on first use.
func Default() *Registry {
	return defaultRegistry()
}

// Register is a shortcut to Default().Register.
func Register(name string) *Op {
	return Default().Register(name)
}

// Get is a shortcut to Default().Get.
func Get(name string) (*Op, error) {
	return Default().Get(name)
}

// MustGet is a shortcut to Default().MustGet.
func MustGet(name string) *Op {
	return Default().MustGet(name)
}

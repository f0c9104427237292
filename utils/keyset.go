package utils

// KeySet is a set of string keys, used to drop repeated items. It is not
// safe for concurrent use.
type KeySet map[string]struct{}

// NewKeySet creates an empty KeySet.
func NewKeySet() KeySet {
	return make(KeySet)
}

// Add returns true if the key was newly added, false if already present.
func (s KeySet) Add(key string) bool {
	if _, exists := s[key]; exists {
		return false
	}
	s[key] = struct{}{}
	return true
}

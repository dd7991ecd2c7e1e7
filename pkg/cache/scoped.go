package cache

// ScopedKeyer wraps a Keyer with a prefix so several projects can share one
// backend without colliding:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "kinetic:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer selects
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}

func (k *ScopedKeyer) PlayKey(sceneHash string, opts PlayKeyOpts) string {
	return k.prefix + k.inner.PlayKey(sceneHash, opts)
}

// Package ptr provides helpers for optional (pointer) fields.
package ptr

// To returns a pointer to the given value.
func To[T any](v T) *T {
	return &v
}

// Deref returns *p, or def when p is nil.
func Deref[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}

// Clone returns a pointer to a copy of *p, or nil when p is nil.
// Records handed out by stores are cloned so callers cannot mutate shared state.
func Clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

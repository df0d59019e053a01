// Package ptr contains small helpers for optional values modelled as pointers.
package ptr

// Ref returns a pointer to v.
func Ref[T any](v T) *T {
	return &v
}

// Or returns *p when p is non-nil and fallback otherwise.
func Or[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

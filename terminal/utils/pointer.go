package utils

// PointerTo returns a pointer to v. Useful for optional struct fields.
func PointerTo[T any](v T) *T {
	return &v
}

package rotate

// ShouldRotate reports whether appending incoming bytes to a file that
// already holds current bytes would take it past limit. A zero limit
// disables rotation. The check runs before the write, so a single line
// longer than limit still rotates and then lands alone in the fresh file.
func ShouldRotate(current, incoming, limit uint64) bool {
	return limit > 0 && current+incoming > limit
}

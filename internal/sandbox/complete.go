package sandbox

// TaskComplete echoes the summary unchanged. It is a terminator signal
// consumed by the step loop, not by the sandbox itself (spec.md §4.4).
func (s *Sandbox) TaskComplete(summary string) string {
	return summary
}

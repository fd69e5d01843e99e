package watch

// ForkResult reports the outcome of Engine.Fork.
type ForkResult struct {
	// Supported is false on platforms without process forking; Fork
	// then also returns k8serr.ForkUnsupported as its error.
	Supported bool
	// PID is the child process id, when Supported is true and the
	// spawn succeeded.
	PID int
}

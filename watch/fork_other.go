//go:build !unix

package watch

import "github.com/cloudlinks/k8swatch/k8serr"

// Fork is unsupported on platforms without a notion of process
// forking/re-exec this library is willing to rely on.
func (e *Engine) Fork() (ForkResult, error) {
	return ForkResult{Supported: false}, k8serr.ForkUnsupported
}

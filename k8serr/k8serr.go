// Package k8serr defines the sentinel errors surfaced across package
// boundaries by k8swatch's components.
//
// Server-reported Status: Failure or type: ERROR frames are deliberately
// absent from this list: the watch engine resets and resumes on those
// internally and never surfaces them to a caller.
package k8serr

import "errors"

var (
	// ConfigMissing indicates no kubeconfig and no in-cluster material
	// could be found.
	ConfigMissing = errors.New("k8swatch: no configuration found")

	// ConfigParse indicates a resolved configuration was malformed or
	// missing a required field.
	ConfigParse = errors.New("k8swatch: configuration parse error")

	// AuthRefreshFailed indicates an auth-provider or exec-provider
	// command failed, or returned data that could not be used.
	AuthRefreshFailed = errors.New("k8swatch: credential refresh failed")

	// TransportOpen indicates a stream could not be opened (DNS, TLS
	// handshake, connection refused).
	TransportOpen = errors.New("k8swatch: transport open failed")

	// TransportRead indicates a read failed unrecoverably, as opposed
	// to merely timing out with no bytes available.
	TransportRead = errors.New("k8swatch: transport read failed")

	// BadPath indicates a structured-path expression could not be
	// parsed (for example, an empty path).
	BadPath = errors.New("k8swatch: malformed path expression")

	// PathMissing indicates a structured-path lookup found no value
	// and no default was supplied.
	PathMissing = errors.New("k8swatch: path not found")

	// PathConflict indicates a structured-path write tried to descend
	// through an existing non-structured leaf.
	PathConflict = errors.New("k8swatch: path conflicts with existing value")

	// ForkUnsupported indicates the current platform has no process
	// forking primitive wired up.
	ForkUnsupported = errors.New("k8swatch: fork is not supported on this platform")
)

package credentials

import (
	"fmt"
	"os"
	"strings"

	"github.com/cloudlinks/k8swatch/k8serr"
)

const (
	inClusterTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	inClusterCAPath    = "/var/run/secrets/kubernetes.io/serviceaccount/ca.crt"
)

// FromInCluster builds static Credentials from the service account
// material Kubernetes mounts into every pod, per spec.md §6's
// in-cluster discovery paragraph. It reads the token from its fixed
// well-known path, checks that the CA file exists at its own (and
// records that path as CAFile), and assembles the server URL from
// KUBERNETES_SERVICE_HOST/KUBERNETES_SERVICE_PORT, falling back to
// https://kubernetes.default.svc.
func FromInCluster() (Credentials, error) {
	tokenBytes, err := os.ReadFile(inClusterTokenPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: reading in-cluster token: %v", k8serr.ConfigMissing, err)
	}

	if _, err := os.Stat(inClusterCAPath); err != nil {
		return Credentials{}, fmt.Errorf("%w: reading in-cluster CA: %v", k8serr.ConfigMissing, err)
	}

	host := os.Getenv("KUBERNETES_SERVICE_HOST")
	port := os.Getenv("KUBERNETES_SERVICE_PORT")

	var serverURL string
	if host != "" && port != "" {
		serverURL = "https://" + host + ":" + port
	} else {
		serverURL = "https://kubernetes.default.svc"
	}

	return Credentials{
		ServerURL:      serverURL,
		CAFile:         inClusterCAPath,
		BearerToken:    strings.TrimSpace(string(tokenBytes)),
		VerifyPeerName: true,
		Provider:       ProviderStatic,
	}, nil
}

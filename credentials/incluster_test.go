package credentials_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudlinks/k8swatch/credentials"
	"github.com/cloudlinks/k8swatch/k8serr"
)

func TestFromInClusterMissingFilesIsConfigMissing(t *testing.T) {
	// In this sandboxed test environment the service account paths
	// are not mounted, so this always exercises the failure path.
	_, err := credentials.FromInCluster()
	assert.ErrorIs(t, err, k8serr.ConfigMissing)
}

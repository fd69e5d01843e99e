package credentials_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlinks/k8swatch/credentials"
	"github.com/cloudlinks/k8swatch/k8serr"
)

// fakePlugin writes a small shell script (or batch file on windows)
// that echoes the given stdout payload, and returns its path.
func fakePlugin(t *testing.T, stdout string) string {
	t.Helper()
	dir := t.TempDir()

	if runtime.GOOS == "windows" {
		path := filepath.Join(dir, "plugin.cmd")
		script := "@echo off\r\n" + fmt.Sprintf("echo %s", stdout) + "\r\n"
		require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
		return path
	}

	path := filepath.Join(dir, "plugin.sh")
	script := "#!/bin/sh\ncat <<'EOF'\n" + stdout + "\nEOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestResolverStaticNeverRefreshes(t *testing.T) {
	r := credentials.NewResolver(credentials.Credentials{
		ServerURL:   "https://example.com",
		BearerToken: "static-token",
		Provider:    credentials.ProviderStatic,
	})

	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static-token", snap.BearerToken)
}

func TestResolverExecProviderRefreshesOnEmptyToken(t *testing.T) {
	plugin := fakePlugin(t, `{
		"kind": "ExecCredential",
		"apiVersion": "client.authentication.k8s.io/v1beta1",
		"status": {"token": "minted-token"}
	}`)

	r := credentials.NewResolver(
		credentials.Credentials{ServerURL: "https://example.com"},
		credentials.WithExecProvider(credentials.ExecConfig{Command: plugin}),
	)

	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "minted-token", snap.BearerToken)
}

func TestResolverExecProviderMissingTokenAndCertIsAuthRefreshFailed(t *testing.T) {
	plugin := fakePlugin(t, `{
		"kind": "ExecCredential",
		"apiVersion": "client.authentication.k8s.io/v1beta1",
		"status": {}
	}`)

	r := credentials.NewResolver(
		credentials.Credentials{ServerURL: "https://example.com"},
		credentials.WithExecProvider(credentials.ExecConfig{Command: plugin}),
	)

	_, err := r.Snapshot(context.Background())
	assert.ErrorIs(t, err, k8serr.AuthRefreshFailed)
}

func TestResolverExecProviderWrongKindIsAuthRefreshFailed(t *testing.T) {
	plugin := fakePlugin(t, `{"kind": "Something", "apiVersion": "v1", "status": {"token": "x"}}`)

	r := credentials.NewResolver(
		credentials.Credentials{ServerURL: "https://example.com"},
		credentials.WithExecProvider(credentials.ExecConfig{Command: plugin}),
	)

	_, err := r.Snapshot(context.Background())
	assert.ErrorIs(t, err, k8serr.AuthRefreshFailed)
}

func TestResolverExecProviderMaterializesClientCert(t *testing.T) {
	plugin := fakePlugin(t, `{
		"kind": "ExecCredential",
		"apiVersion": "client.authentication.k8s.io/v1beta1",
		"status": {
			"token": "t",
			"clientCertificateData": "CERTDATA",
			"clientKeyData": "KEYDATA"
		}
	}`)

	r := credentials.NewResolver(
		credentials.Credentials{ServerURL: "https://example.com"},
		credentials.WithExecProvider(credentials.ExecConfig{Command: plugin}),
	)

	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, snap.ClientCertFile)
	data, err := os.ReadFile(snap.ClientCertFile)
	require.NoError(t, err)
	assert.Equal(t, "CERTDATA", string(data))

	require.NoError(t, r.Close())
	_, err = os.Stat(snap.ClientCertFile)
	assert.True(t, os.IsNotExist(err))
}

func TestResolverAuthProviderExtractsTokenAtDottedPath(t *testing.T) {
	plugin := fakePlugin(t, `{"credential": {"access_token": "oidc-token", "expiry": 9999999999}}`)

	r := credentials.NewResolver(
		credentials.Credentials{ServerURL: "https://example.com"},
		credentials.WithAuthProvider(credentials.AuthProviderConfig{
			Command:    plugin,
			TokenPath:  "{.credential.access_token}",
			ExpiryPath: "{.credential.expiry}",
		}),
	)

	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "oidc-token", snap.BearerToken)
	require.NotNil(t, snap.Expiry)
	assert.Equal(t, int64(9999999999), *snap.Expiry)
}

func TestResolverAuthProviderMissingTokenPathIsAuthRefreshFailed(t *testing.T) {
	plugin := fakePlugin(t, `{"credential": {}}`)

	r := credentials.NewResolver(
		credentials.Credentials{ServerURL: "https://example.com"},
		credentials.WithAuthProvider(credentials.AuthProviderConfig{
			Command:   plugin,
			TokenPath: "{.credential.access_token}",
		}),
	)

	_, err := r.Snapshot(context.Background())
	assert.ErrorIs(t, err, k8serr.AuthRefreshFailed)
}

func TestResolverRefreshesWhenExpired(t *testing.T) {
	calls := 0
	plugin := fakePluginCounting(t, &calls)

	r := credentials.NewResolver(
		credentials.Credentials{
			ServerURL:   "https://example.com",
			BearerToken: "stale",
			Expiry:      unixPtr(time.Now().Add(-time.Minute).Unix()),
		},
		credentials.WithExecProvider(credentials.ExecConfig{Command: plugin}),
	)

	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", snap.BearerToken)
}

func fakePluginCounting(t *testing.T, calls *int) string {
	t.Helper()
	*calls++
	return fakePlugin(t, `{
		"kind": "ExecCredential",
		"apiVersion": "client.authentication.k8s.io/v1beta1",
		"status": {"token": "fresh"}
	}`)
}

func unixPtr(v int64) *int64 { return &v }

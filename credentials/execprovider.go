package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/cloudlinks/k8swatch/k8serr"
)

// ExecConfig configures the exec-provider refresh strategy: an
// external command whose stdout is an ExecCredential document,
// following client.authentication.k8s.io/v1beta1 (spec.md §4.1).
type ExecConfig struct {
	// Command is the plugin executable. A relative path is resolved
	// against ConfigDir, the directory of the kubeconfig the exec
	// stanza came from.
	Command string
	Args    []string
	Env     map[string]string
	// ConfigDir is the directory a relative Command is resolved
	// against. Empty means "as given to exec.Command" (PATH lookup or
	// already absolute).
	ConfigDir string
}

// execCredentialTypeMeta mirrors the Kubernetes ExecCredential
// envelope, extracted from the teacher's cmd/pomerium-cli/kubernetes.go
// (which emits the same shape for its own exec plugin) and generalized
// to parse one rather than produce one.
type execCredentialTypeMeta struct {
	Kind       string `json:"kind"`
	APIVersion string `json:"apiVersion"`
}

type execCredential struct {
	execCredentialTypeMeta
	Status *execCredentialStatus `json:"status"`
}

type execCredentialStatus struct {
	ExpirationTimestamp  *time.Time `json:"expirationTimestamp,omitempty"`
	Token                string     `json:"token,omitempty"`
	ClientCertificateData string    `json:"clientCertificateData,omitempty"`
	ClientKeyData         string    `json:"clientKeyData,omitempty"`
}

const execCredentialAPIVersion = "client.authentication.k8s.io/v1beta1"

func (r *Resolver) refreshExec(ctx context.Context) error {
	cfg := r.creds.exec
	if cfg == nil {
		return fmt.Errorf("%w: exec provider not configured", k8serr.AuthRefreshFailed)
	}

	command := cfg.Command
	if !filepath.IsAbs(command) && cfg.ConfigDir != "" {
		command = filepath.Join(cfg.ConfigDir, command)
	}

	cmd := exec.CommandContext(ctx, command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: exec command %q failed: %v (stderr: %s)",
			k8serr.AuthRefreshFailed, cfg.Command, err, stderr.String())
	}

	var cred execCredential
	if err := json.Unmarshal(stdout.Bytes(), &cred); err != nil {
		return fmt.Errorf("%w: exec command %q produced invalid JSON: %v",
			k8serr.AuthRefreshFailed, cfg.Command, err)
	}

	if cred.Kind != "ExecCredential" || cred.APIVersion != execCredentialAPIVersion {
		return fmt.Errorf("%w: exec command %q returned kind=%q apiVersion=%q, want ExecCredential/%s",
			k8serr.AuthRefreshFailed, cfg.Command, cred.Kind, cred.APIVersion, execCredentialAPIVersion)
	}
	if cred.Status == nil {
		return fmt.Errorf("%w: exec command %q returned no status", k8serr.AuthRefreshFailed, cfg.Command)
	}
	if cred.Status.Token == "" && cred.Status.ClientCertificateData == "" {
		return fmt.Errorf("%w: exec command %q returned neither a token nor client certificate data",
			k8serr.AuthRefreshFailed, cfg.Command)
	}

	next := r.creds
	next.BearerToken = cred.Status.Token

	if cred.Status.ClientCertificateData != "" {
		certPath, err := r.mat.MaterializeVolatile("client-cert", []byte(cred.Status.ClientCertificateData))
		if err != nil {
			return fmt.Errorf("%w: %v", k8serr.AuthRefreshFailed, err)
		}
		keyPath, err := r.mat.MaterializeVolatile("client-key", []byte(cred.Status.ClientKeyData))
		if err != nil {
			return fmt.Errorf("%w: %v", k8serr.AuthRefreshFailed, err)
		}
		next.ClientCertFile = certPath
		next.ClientKeyFile = keyPath
	}

	switch {
	case cred.Status.ExpirationTimestamp != nil:
		unix := cred.Status.ExpirationTimestamp.Unix()
		next.Expiry = &unix
	case cred.Status.Token != "":
		next.Expiry = jwtExpiry(cred.Status.Token)
	default:
		next.Expiry = nil
	}

	r.creds = next
	return nil
}

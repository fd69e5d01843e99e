package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudlinks/k8swatch/k8serr"
	"github.com/cloudlinks/k8swatch/pathutil"
)

// AuthProviderConfig configures the auth-provider refresh strategy: a
// command plus a pair of brace-delimited dotted paths, as kubeconfig's
// user.auth-provider stanza supplies them (spec.md §4.1).
type AuthProviderConfig struct {
	Command string
	// Args is the raw argument string as kubeconfig supplies it,
	// split on whitespace before exec.
	Args string
	// TokenPath and ExpiryPath are brace-delimited, e.g. "{.credential.access_token}".
	// ExpiryPath is optional; a missing expiry means the token never
	// expires.
	TokenPath  string
	ExpiryPath string
	ConfigDir  string
}

// stripBraces converts kubeconfig's "{.a.b}" path syntax to the plain
// dotted form pathutil.Get expects.
func stripBraces(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "{")
	trimmed = strings.TrimSuffix(trimmed, "}")
	return strings.TrimPrefix(trimmed, ".")
}

func (r *Resolver) refreshAuthProvider(ctx context.Context) error {
	cfg := r.creds.authProvider
	if cfg == nil {
		return fmt.Errorf("%w: auth provider not configured", k8serr.AuthRefreshFailed)
	}

	command := cfg.Command
	if !filepath.IsAbs(command) && cfg.ConfigDir != "" {
		command = filepath.Join(cfg.ConfigDir, command)
	}

	var args []string
	if strings.TrimSpace(cfg.Args) != "" {
		args = strings.Fields(cfg.Args)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: auth-provider command %q failed: %v (stderr: %s)",
			k8serr.AuthRefreshFailed, cfg.Command, err, stderr.String())
	}

	var doc pathutil.Document
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		return fmt.Errorf("%w: auth-provider command %q produced invalid JSON: %v",
			k8serr.AuthRefreshFailed, cfg.Command, err)
	}

	tokenPath := stripBraces(cfg.TokenPath)
	tokenVal, err := pathutil.Get(doc, tokenPath)
	if err != nil {
		return fmt.Errorf("%w: auth-provider command %q: token path %q not found",
			k8serr.AuthRefreshFailed, cfg.Command, cfg.TokenPath)
	}
	token, ok := tokenVal.(string)
	if !ok || token == "" {
		return fmt.Errorf("%w: auth-provider command %q: token path %q did not yield a string",
			k8serr.AuthRefreshFailed, cfg.Command, cfg.TokenPath)
	}

	next := r.creds
	next.BearerToken = token
	next.Expiry = nil

	if cfg.ExpiryPath != "" {
		expiryPath := stripBraces(cfg.ExpiryPath)
		if expiryVal, err := pathutil.Get(doc, expiryPath); err == nil {
			if exp, ok := parseExpiry(expiryVal); ok {
				next.Expiry = &exp
			}
		}
	}
	if next.Expiry == nil {
		next.Expiry = jwtExpiry(token)
	}

	r.creds = next
	return nil
}

// parseExpiry accepts either a unix-seconds number or an RFC3339
// timestamp string, since kubeconfig auth-provider plugins aren't
// consistent about which they emit.
func parseExpiry(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case float64:
		return int64(val), true
	case string:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n, true
		}
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

package credentials

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/martinlindhe/base36"
)

// materializer writes PEM-encoded credential material to temp files
// and tracks their lifetime: writing the same content twice reuses the
// same path (derived from a content hash, following jwt/jwtcache.go's
// hash/fileName technique), and overwriting a kind with different
// content deletes the previous file. All files are removed on
// closeAll, which a Resolver calls from Close.
type materializer struct {
	mu    sync.Mutex
	dir   string
	dirOK bool
	paths map[string]string // kind -> current path
}

func newMaterializer() *materializer {
	return &materializer{paths: make(map[string]string)}
}

func (m *materializer) ensureDir() (string, error) {
	if m.dirOK {
		return m.dir, nil
	}
	root, err := os.UserCacheDir()
	if err != nil {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "k8swatch", "credentials")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("credentials: creating temp credential dir: %w", err)
	}
	m.dir = dir
	m.dirOK = true
	return dir, nil
}

// Materialize writes data for the given kind (e.g. "ca", "client-cert",
// "client-key") to a deterministically-named temp file, returning its
// path. A previous file for the same kind with different content is
// deleted.
func (m *materializer) Materialize(kind string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.ensureDir()
	if err != nil {
		return "", err
	}

	name := contentFileName(kind, data)
	path := filepath.Join(dir, name)

	if prev, ok := m.paths[kind]; ok && prev != path {
		_ = os.Remove(prev)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("credentials: writing temp credential file: %w", err)
	}
	m.paths[kind] = path
	return path, nil
}

// MaterializeVolatile writes data for kind to a fresh, uuid-named temp
// file every call. Used when content isn't expected to be stable
// across refreshes (exec-provider PEM material changes on every
// invocation), so a content hash wouldn't save any writes anyway.
func (m *materializer) MaterializeVolatile(kind string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, err := m.ensureDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, kind+"-"+uuid.NewString()+".pem")
	if prev, ok := m.paths[kind]; ok {
		_ = os.Remove(prev)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("credentials: writing temp credential file: %w", err)
	}
	m.paths[kind] = path
	return path, nil
}

func (m *materializer) closeAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for kind, path := range m.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
		delete(m.paths, kind)
	}
	return firstErr
}

func contentFileName(kind string, data []byte) string {
	sum := sha256.Sum256(data)
	return kind + "-" + base36.EncodeBytes(sum[:]) + ".pem"
}

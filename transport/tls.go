package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/cloudlinks/k8swatch/credentials"
	"github.com/cloudlinks/k8swatch/k8serr"
)

// buildTLSConfig turns a credential snapshot into a *tls.Config. As
// spec.md §4.1 documents, VerifyPeerName=false collapses to
// InsecureSkipVerify rather than a partial "verify the chain but not
// the name" mode — Go's stdlib has no middle ground there short of a
// custom VerifyPeerCertificate callback, which this library does not
// need.
func buildTLSConfig(creds credentials.Credentials) (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: !creds.VerifyPeerName,
	}

	if creds.CAFile != "" {
		pool, err := loadCAPool(creds.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", k8serr.ConfigParse, err)
		}
		cfg.RootCAs = pool
	}

	if creds.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(creds.ClientCertFile, creds.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: loading client certificate: %s", k8serr.ConfigParse, err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/tscert"
)

type tlsMode int

const (
	tlsOff tlsMode = iota
	tlsFiles
	tlsTailscale
)

// tlsSetup is the resolved TLS arrangement for one server.
type tlsSetup struct {
	mode     tlsMode
	certFile string
	keyFile  string
}

// resolveTLS checks the TLS fields of c. Certificate files must exist; a leading ~
// is expanded to the home directory.
func (c ServerConfig) resolveTLS() (tlsSetup, error) {
	files := c.TLSCert != "" || c.TLSKey != ""
	if c.TailscaleTLS {
		if files {
			return tlsSetup{}, fmt.Errorf("tailscale_tls cannot be combined with tls_cert/tls_key")
		}
		return tlsSetup{mode: tlsTailscale}, nil
	}
	if !files {
		return tlsSetup{mode: tlsOff}, nil
	}
	if c.TLSCert == "" || c.TLSKey == "" {
		return tlsSetup{}, fmt.Errorf("both tls_cert and tls_key must be specified (got cert=%q, key=%q)", c.TLSCert, c.TLSKey)
	}

	setup := tlsSetup{mode: tlsFiles, certFile: expandHome(c.TLSCert), keyFile: expandHome(c.TLSKey)}
	for _, f := range []struct{ field, path string }{
		{"tls_cert", setup.certFile},
		{"tls_key", setup.keyFile},
	} {
		if _, err := os.Stat(f.path); err != nil {
			return tlsSetup{}, fmt.Errorf("%s: %w", f.field, err)
		}
	}
	return setup, nil
}

// apply configures srv for the setup. The returned files are passed to
// ListenAndServeTLS; both are empty when certificates come from tailscaled.
func (s tlsSetup) apply(srv *http.Server) (certFile, keyFile string) {
	if s.mode == tlsTailscale {
		srv.TLSConfig = &tls.Config{GetCertificate: tscert.GetCertificate}
	}
	return s.certFile, s.keyFile
}

func (s tlsSetup) String() string {
	switch s.mode {
	case tlsFiles:
		return "TLS enabled"
	case tlsTailscale:
		return "Tailscale TLS"
	}
	return "plain HTTP"
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

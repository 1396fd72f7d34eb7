// Package main generates a development Certificate Authority and a server
// certificate for the login server, writing them under a certs directory.
// An existing CA in that directory is reused so browsers that trust it keep
// working after the server certificate is regenerated.
package main

import (
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/securebank/internal/certgen"
)

const caCommonName = "SecureBank Dev CA"

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma separated server host names and IPs")
	flag.Parse()

	if err := generate(*dir, splitHosts(*hosts)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
	fmt.Printf("Run the server with -tls-cert %s -tls-key %s\n",
		filepath.Join(*dir, "server.crt"), filepath.Join(*dir, "server.key"))
}

// generate writes ca.crt/ca.key (unless present) and server.crt/server.key.
func generate(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	caCert, caKey, err := loadOrCreateCA(caCertPath, caKeyPath)
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return fmt.Errorf("server certificate: %w", err)
	}
	return writePair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM)
}

func loadOrCreateCA(certPath, keyPath string) (*x509.Certificate, any, error) {
	caCert, caKey, err := certgen.LoadCACredentials(certPath, keyPath)
	if err == nil {
		return caCert, caKey, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, err
	}

	newCert, newKey, certPEM, keyPEM, err := certgen.GenerateCA(caCommonName)
	if err != nil {
		return nil, nil, fmt.Errorf("ca: %w", err)
	}
	if err := writePair(certPath, keyPath, certPEM, keyPEM); err != nil {
		return nil, nil, err
	}
	return newCert, newKey, nil
}

func writePair(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

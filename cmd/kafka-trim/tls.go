package main

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

type tlsConfig struct {
	Enable     bool   `conf:"enable"      help:"Connect to the broker over TLS"`
	ServerName string `conf:"server-name" help:"Server name verified in the broker certificate, the broker host when empty"`
	CAFile     string `conf:"ca-file"     help:"PEM file of the certificate authorities trusted in addition to the system pool"`
	Insecure   bool   `conf:"insecure"    help:"Skip the verification of the broker certificate"`
}

func (c tlsConfig) config() (*tls.Config, error) {
	if !c.Enable {
		return nil, nil
	}

	config := &tls.Config{
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.Insecure,
	}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read certificate authorities")
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificate found in %s", c.CAFile)
		}
		config.RootCAs = pool
	}

	return config, nil
}

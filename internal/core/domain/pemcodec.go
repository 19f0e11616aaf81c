package domain

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/helpers"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// EncodeCertificatePEM encodes one certificate as a PEM block.
func EncodeCertificatePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// EncodeCertificateFile renders a credential's on-disk certificate file:
// the leaf followed by its non-root chain, each block preceded by a
// human-readable subject/issuer/validity comment line.
func EncodeCertificateFile(leaf *x509.Certificate, chain []*x509.Certificate) []byte {
	var b strings.Builder
	for _, cert := range append([]*x509.Certificate{leaf}, chain...) {
		fmt.Fprintf(&b, "# subject=%s issuer=%s notAfter=%s\n",
			cert.Subject.CommonName, cert.Issuer.CommonName, cert.NotAfter.UTC().Format(time.RFC3339))
		b.Write(EncodeCertificatePEM(cert))
	}
	return []byte(b.String())
}

// ParseCertificatePEM parses a single PEM certificate.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	cert, err := helpers.ParseCertificatePEM(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	return cert, nil
}

// ParseCertificatesPEM parses a concatenation of PEM certificates, such as
// a credential's certificate file. Comment lines between blocks are
// ignored.
func ParseCertificatesPEM(data []byte) ([]*x509.Certificate, error) {
	certs, err := helpers.ParseCertificatesPEM(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	if len(certs) == 0 {
		return nil, errors.Wrapf(errors.ErrIO, "no certificates in PEM data")
	}
	return certs, nil
}

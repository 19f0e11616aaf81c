package domain

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"

	"github.com/cloudflare/cfssl/helpers"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// SigningRequest wraps a PKCS#10 certificate signing request together with
// its PEM form. Requests are produced by Credential.CreateRequest and
// consumed by IssuingAuthority.ReviewRequest and Sign.
type SigningRequest struct {
	csr *x509.CertificateRequest
	pem []byte
}

// ParseSigningRequest parses a PEM-encoded PKCS#10 request. A request whose
// DER decodes but whose self-signature does not verify fails with
// INVALID_REQUEST_SIGNATURE rather than IO_ERROR.
func ParseSigningRequest(data []byte) (*SigningRequest, error) {
	csr, err := helpers.ParseCSRPEM(data)
	if err != nil {
		if block, _ := pem.Decode(data); block != nil {
			if _, parseErr := x509.ParseCertificateRequest(block.Bytes); parseErr == nil {
				return nil, errors.Wrap(errors.ErrInvalidRequestSignature, err)
			}
		}
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	return &SigningRequest{csr: csr, pem: data}, nil
}

// NewSigningRequest wraps an already-parsed request.
func NewSigningRequest(csr *x509.CertificateRequest) *SigningRequest {
	return &SigningRequest{
		csr: csr,
		pem: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csr.Raw}),
	}
}

// CSR exposes the parsed request.
func (r *SigningRequest) CSR() *x509.CertificateRequest {
	return r.csr
}

// PEM returns the request's PEM encoding.
func (r *SigningRequest) PEM() []byte {
	return append([]byte(nil), r.pem...)
}

// CommonName returns the request's subject Common Name.
func (r *SigningRequest) CommonName() string {
	return r.csr.Subject.CommonName
}

// extension returns the requested extension with the given OID, if present.
func (r *SigningRequest) extension(oid asn1.ObjectIdentifier) ([]byte, bool) {
	for _, ext := range r.csr.Extensions {
		if ext.Id.Equal(oid) {
			return ext.Value, true
		}
	}
	return nil, false
}

package domain

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"time"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// RolePolicy is one row of an authority's policy table: how long
// certificates issued for the role live and, for CA roles, the chain depth
// stamped into their Basic Constraints.
type RolePolicy struct {
	ValidityDays  int
	MaxChainDepth int
}

// AuthorityPolicy names exactly which identity roles an authority is
// willing to sign. Anything not in AcceptedRoles is rejected with
// ROLE_NOT_ACCEPTED.
type AuthorityPolicy struct {
	AcceptedRoles       map[Role]RolePolicy
	MaxChainDepthBelow  int
	SignsCACertificates bool
}

// IssuingAuthority is a Credential additionally capable of reviewing
// signing requests against a policy and signing them into certificates.
type IssuingAuthority struct {
	*Credential
	Policy AuthorityPolicy
}

// NewIssuingAuthority pairs a credential with its issuance policy.
func NewIssuingAuthority(credential *Credential, policy AuthorityPolicy) *IssuingAuthority {
	return &IssuingAuthority{Credential: credential, Policy: policy}
}

// SignedCertificate is the result of a successful Sign: the issued
// certificate and the issuing authority's own certificate plus chain. The
// chain never includes the network root.
type SignedCertificate struct {
	Certificate *x509.Certificate
	PEM         []byte
	Chain       []*x509.Certificate
}

// acceptedSignatureAlgorithms is the closed set of request signature
// algorithms; SHA-256 is the sole accepted digest.
var acceptedSignatureAlgorithms = map[x509.SignatureAlgorithm]bool{
	x509.SHA256WithRSA:   true,
	x509.ECDSAWithSHA256: true,
	x509.PureEd25519:     true,
}

// subjectAttributeAllowList is the set of distinguished-name attributes a
// request may carry besides the Common Name. Anything else is
// MALFORMED_SUBJECT.
var subjectAttributeAllowList = []asn1.ObjectIdentifier{
	{2, 5, 4, 6},  // countryName
	{2, 5, 4, 8},  // stateOrProvinceName
	{2, 5, 4, 7},  // localityName
	{2, 5, 4, 10}, // organizationName
}

var oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

// ReviewRequest is the validation gate every request passes before
// signing. Each step has a distinct failure mode so rejections are
// attributable in security logs. On success it returns the identity the
// request claims; whether this particular requester may claim that identity
// is the caller's decision.
func (a *IssuingAuthority) ReviewRequest(request *SigningRequest) (EntityIdentity, error) {
	if !a.isCA || a.key == nil {
		return EntityIdentity{}, errors.Wrapf(errors.ErrNotACertifyingAuthority, "%q", a.commonName)
	}

	csr := request.CSR()
	if err := csr.CheckSignature(); err != nil {
		return EntityIdentity{}, errors.Wrap(errors.ErrInvalidRequestSignature, err)
	}

	if !acceptedSignatureAlgorithms[csr.SignatureAlgorithm] {
		return EntityIdentity{}, errors.Wrapf(errors.ErrUnsupportedAlgorithm,
			"signature algorithm %s", csr.SignatureAlgorithm)
	}

	if err := reviewSubject(csr.Subject); err != nil {
		return EntityIdentity{}, err
	}

	identity, err := DecodeCommonName(csr.Subject.CommonName, a.network, nil)
	if err != nil {
		return EntityIdentity{}, err
	}

	if len(csr.DNSNames) == 0 {
		return EntityIdentity{}, errors.Wrapf(errors.ErrMissingSubjectAltName, "request for %q", csr.Subject.CommonName)
	}
	if len(csr.DNSNames) > 1 {
		return EntityIdentity{}, errors.Wrapf(errors.ErrTooManySubjectAltNames,
			"request for %q carries %d names", csr.Subject.CommonName, len(csr.DNSNames))
	}
	if csr.DNSNames[0] != csr.Subject.CommonName {
		return EntityIdentity{}, errors.Wrapf(errors.ErrSubjectAltNameMismatch,
			"subject alternative name %q, common name %q", csr.DNSNames[0], csr.Subject.CommonName)
	}

	if _, ok := a.Policy.AcceptedRoles[identity.Role]; !ok {
		return EntityIdentity{}, errors.Wrapf(errors.ErrRoleNotAccepted,
			"authority %q does not issue %q certificates", a.commonName, identity.Role)
	}
	if identity.Role.IsCA() && !a.Policy.SignsCACertificates {
		return EntityIdentity{}, errors.Wrapf(errors.ErrRoleNotAccepted,
			"authority %q does not issue CA certificates", a.commonName)
	}

	return identity, nil
}

// reviewSubject rejects distinguished names carrying anything beyond the
// Common Name and the ignorable allow-list.
func reviewSubject(subject pkix.Name) error {
	if subject.CommonName == "" {
		return errors.Wrapf(errors.ErrMalformedSubject, "no common name attribute")
	}
	for _, attr := range subject.Names {
		if attr.Type.Equal(oidCommonName) {
			continue
		}
		allowed := false
		for _, oid := range subjectAttributeAllowList {
			if attr.Type.Equal(oid) {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.Wrapf(errors.ErrMalformedSubject, "unexpected attribute %s", attr.Type)
		}
	}
	return nil
}

// SignOption adjusts the validity window of a signed certificate. Without
// options, the requested role's configured validity applies.
type SignOption func(*signConfig)

type signConfig struct {
	validityDays int
	validity     time.Duration
	notAfter     time.Time
}

// WithValidityDays overrides the policy table's validity period in days.
func WithValidityDays(days int) SignOption {
	return func(cfg *signConfig) { cfg.validityDays = days }
}

// WithValidity overrides the validity period with an exact duration.
func WithValidity(d time.Duration) SignOption {
	return func(cfg *signConfig) { cfg.validity = d }
}

// WithNotAfter pins the certificate's expiry to an exact instant.
func WithNotAfter(t time.Time) SignOption {
	return func(cfg *signConfig) { cfg.notAfter = t }
}

// Sign reviews the request and issues a certificate for it. The issued
// certificate copies the request's public key and declared key usages;
// Basic Constraints always follow this authority's policy entry for the
// role, never what the request asked for. The returned chain is this
// authority's own certificate followed by its own chain; the root is never
// included.
func (a *IssuingAuthority) Sign(request *SigningRequest, opts ...SignOption) (*SignedCertificate, error) {
	identity, err := a.ReviewRequest(request)
	if err != nil {
		return nil, err
	}
	rolePolicy := a.Policy.AcceptedRoles[identity.Role]

	var cfg signConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	now := time.Now()
	notAfter := cfg.notAfter
	switch {
	case !notAfter.IsZero():
	case cfg.validity != 0:
		notAfter = now.Add(cfg.validity)
	case cfg.validityDays != 0:
		notAfter = now.Add(time.Duration(cfg.validityDays) * 24 * time.Hour)
	default:
		notAfter = now.Add(time.Duration(rolePolicy.ValidityDays) * 24 * time.Hour)
	}

	csr := request.CSR()

	kuDER, ok := request.extension(oidKeyUsage)
	if !ok {
		return nil, errors.Wrapf(errors.ErrMissingKeyUsageExtension, "request for %q", csr.Subject.CommonName)
	}
	keyUsage, err := ParseKeyUsageExtension(kuDER)
	if err != nil {
		return nil, err
	}

	var extKeyUsage []x509.ExtKeyUsage
	if ekuDER, ok := request.extension(oidExtKeyUsage); ok {
		extKeyUsage, err = ParseExtKeyUsageExtension(ekuDER)
		if err != nil {
			return nil, err
		}
	}

	serial, err := newSerialNumber()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   csr.Subject.CommonName,
			Country:      csr.Subject.Country,
			Province:     csr.Subject.Province,
			Locality:     csr.Subject.Locality,
			Organization: csr.Subject.Organization,
		},
		DNSNames:  csr.DNSNames,
		NotBefore: now,
		NotAfter:  notAfter,

		KeyUsage:    keyUsage,
		ExtKeyUsage: extKeyUsage,

		BasicConstraintsValid: true,
	}
	if identity.Role.IsCA() {
		template.IsCA = true
		template.MaxPathLen = rolePolicy.MaxChainDepth
		template.MaxPathLenZero = rolePolicy.MaxChainDepth == 0
	}

	der, err := x509.CreateCertificate(rand.Reader, template, a.cert, csr.PublicKey, a.key)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.Wrap(errors.ErrIO, err)
	}

	// The chain handed back is the issuer's own certificate plus its chain,
	// except that the network root never appears in any returned chain.
	var chain []*x509.Certificate
	if !a.selfSigned {
		chain = append([]*x509.Certificate{a.cert}, a.chain...)
	}
	return &SignedCertificate{
		Certificate: cert,
		PEM:         EncodeCertificatePEM(cert),
		Chain:       chain,
	}, nil
}

// Package trustfabric is the authentication boundary of the certificate
// core: the operations reverse-proxy-fronted services use to turn inbound
// TLS metadata into a trusted identity without re-deriving PKI logic at
// every call site.
package trustfabric

import (
	"crypto/x509"

	"github.com/trustfabric/trustfabric/internal/core/domain"
	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

// Identity is the decoded form of a certificate Common Name.
type Identity = domain.EntityIdentity

// Role is the fixed category of actor encoded in a Common Name.
type Role = domain.Role

// Certificate roles, plus the anonymous marker used only at the API
// boundary.
const (
	RoleAccount     = domain.RoleAccount
	RoleAccountData = domain.RoleAccountData
	RoleMember      = domain.RoleMember
	RoleMemberData  = domain.RoleMemberData
	RoleService     = domain.RoleService
	RoleServiceData = domain.RoleServiceData
	RoleServiceCA   = domain.RoleServiceCA
	RoleApp         = domain.RoleApp
	RoleAppData     = domain.RoleAppData
	RoleAccountsCA  = domain.RoleAccountsCA
	RoleServicesCA  = domain.RoleServicesCA
	RoleMembersCA   = domain.RoleMembersCA
	RoleAppsCA      = domain.RoleAppsCA
	RoleNetworkData = domain.RoleNetworkData
	RoleAnonymous   = domain.RoleAnonymous
)

// DecodeIdentity parses a Common Name against the identity grammar of the
// given network.
func DecodeIdentity(commonName, network string) (Identity, error) {
	net, err := domain.NewNetwork(network)
	if err != nil {
		return Identity{}, err
	}
	return domain.DecodeCommonName(commonName, net, nil)
}

// VerifyRoleChain checks that a Common Name claims exactly the given role
// and service id, and that issuerCommonName is the authority the hierarchy
// expects to have signed it.
func VerifyRoleChain(commonName, issuerCommonName, network string, role Role, serviceID *uint32) error {
	net, err := domain.NewNetwork(network)
	if err != nil {
		return err
	}
	identity, err := domain.DecodeCommonName(commonName, net, nil)
	if err != nil {
		return err
	}
	if identity.Role != role {
		return errors.Wrapf(errors.ErrRoleNotPermittedHere,
			"%q claims role %q, expected %q", commonName, identity.Role, role)
	}
	if (identity.ServiceID == nil) != (serviceID == nil) ||
		(serviceID != nil && *identity.ServiceID != *serviceID) {
		return errors.Wrapf(errors.ErrRoleNotPermittedHere,
			"%q does not belong to the expected service", commonName)
	}

	hierarchy := domain.NewHierarchy(net, ports.DefaultConfiguration(network), nil, nil)
	expectedIssuer, err := hierarchy.IssuerCommonName(identity.Role, identity.ServiceID)
	if err != nil {
		return err
	}
	if issuerCommonName != expectedIssuer {
		return errors.Wrapf(errors.ErrRoleNotPermittedHere,
			"%q was issued by %q, expected %q", commonName, issuerCommonName, expectedIssuer)
	}
	return nil
}

// checkCertificate decodes a certificate's subject against an expected
// role and verifies its issuer is the hierarchy's expected authority.
func checkCertificate(cert *x509.Certificate, network string, role Role) (Identity, error) {
	if cert == nil {
		return Identity{}, errors.Wrapf(errors.ErrInvalidIdentity, "certificate is nil")
	}
	if err := VerifyRoleChainForCert(cert, network, role); err != nil {
		return Identity{}, err
	}
	return DecodeIdentity(cert.Subject.CommonName, network)
}

// VerifyRoleChainForCert applies VerifyRoleChain to a parsed certificate,
// deriving the service id from the certificate's own name.
func VerifyRoleChainForCert(cert *x509.Certificate, network string, role Role) error {
	identity, err := DecodeIdentity(cert.Subject.CommonName, network)
	if err != nil {
		return err
	}
	return VerifyRoleChain(cert.Subject.CommonName, cert.Issuer.CommonName, network, role, identity.ServiceID)
}

// CheckAccountCertificate authenticates an account leaf certificate.
func CheckAccountCertificate(cert *x509.Certificate, network string) (Identity, error) {
	return checkCertificate(cert, network, RoleAccount)
}

// CheckMemberCertificate authenticates a member leaf certificate.
func CheckMemberCertificate(cert *x509.Certificate, network string) (Identity, error) {
	return checkCertificate(cert, network, RoleMember)
}

// CheckServiceCertificate authenticates a service leaf certificate.
func CheckServiceCertificate(cert *x509.Certificate, network string) (Identity, error) {
	return checkCertificate(cert, network, RoleService)
}

// CheckAppCertificate authenticates an app leaf certificate.
func CheckAppCertificate(cert *x509.Certificate, network string) (Identity, error) {
	return checkCertificate(cert, network, RoleApp)
}

// ValidateChain proves a leaf certificate is reachable from a trusted root
// through the given intermediate chain.
func ValidateChain(leaf *x509.Certificate, chain []*x509.Certificate, trustedRoot *x509.Certificate) error {
	return domain.ValidateChain(leaf, chain, trustedRoot)
}

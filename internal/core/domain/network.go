// Package domain contains the certificate-authority core: the identity
// grammar, credentials, issuing authorities, the authority hierarchy, and
// chain validation.
package domain

import (
	"regexp"
	"strings"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// domainPattern accepts ordinary DNS names: dot-separated labels of
// alphanumerics and inner hyphens.
var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// Network identifies the federated network every certificate name must end
// in. It is a validated value object; the zero value is unusable.
type Network struct {
	domain string
}

// NewNetwork creates a validated Network from a DNS domain name.
func NewNetwork(domain string) (Network, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return Network{}, errors.Wrapf(errors.ErrMalformedName, "network domain is empty")
	}
	if !domainPattern.MatchString(domain) {
		return Network{}, errors.Wrapf(errors.ErrMalformedName, "network domain %q is not a valid DNS name", domain)
	}
	return Network{domain: domain}, nil
}

// MustNewNetwork creates a Network or panics. Use only in tests or with
// inputs that are known to be valid.
func MustNewNetwork(domain string) Network {
	n, err := NewNetwork(domain)
	if err != nil {
		panic(err)
	}
	return n
}

// Domain returns the network's DNS domain.
func (n Network) Domain() string {
	return n.domain
}

// String returns the network's DNS domain.
func (n Network) String() string {
	return n.domain
}

// IsZero reports whether the Network is unset.
func (n Network) IsZero() bool {
	return n.domain == ""
}

// Equals reports whether two networks name the same domain.
func (n Network) Equals(other Network) bool {
	return n.domain == other.domain
}

// RootCommonName returns the Common Name of the network's trust root, which
// is the bare network domain.
func (n Network) RootCommonName() string {
	return n.domain
}

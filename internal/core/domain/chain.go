package domain

import (
	"bytes"
	"crypto/x509"
	"time"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// ValidateChain proves that leaf is reachable from trustedRoot through the
// given intermediate chain (closest-to-leaf first, root excluded), checking
// each signature and each issuer/subject linkage. Every certificate in the
// path must be inside its validity window at the time of validation.
// Revocation is not evaluated.
func ValidateChain(leaf *x509.Certificate, chain []*x509.Certificate, trustedRoot *x509.Certificate) error {
	return ValidateChainAt(leaf, chain, trustedRoot, time.Now())
}

// ValidateChainAt is ValidateChain evaluated at an explicit instant.
func ValidateChainAt(leaf *x509.Certificate, chain []*x509.Certificate, trustedRoot *x509.Certificate, at time.Time) error {
	if leaf == nil {
		return errors.Wrapf(errors.ErrChainBroken, "leaf certificate is nil")
	}
	if trustedRoot == nil {
		return errors.Wrapf(errors.ErrUntrustedRoot, "no trusted root supplied")
	}

	path := append([]*x509.Certificate{leaf}, chain...)
	for _, cert := range path {
		if err := checkValidityWindow(cert, at); err != nil {
			return err
		}
	}
	if err := checkValidityWindow(trustedRoot, at); err != nil {
		return err
	}

	// Intermediate links: each certificate must chain to the next one up.
	for i := 0; i < len(path)-1; i++ {
		child, issuer := path[i], path[i+1]
		if child.Issuer.CommonName != issuer.Subject.CommonName {
			return errors.Wrapf(errors.ErrChainBroken,
				"link %d: %q names issuer %q but the next certificate is %q",
				i, child.Subject.CommonName, child.Issuer.CommonName, issuer.Subject.CommonName)
		}
		if err := child.CheckSignatureFrom(issuer); err != nil {
			return errors.Wrapf(errors.ErrChainBroken,
				"link %d: signature of %q does not verify against %q: %v",
				i, child.Subject.CommonName, issuer.Subject.CommonName, err)
		}
	}

	// Root link: the top of the path must terminate at the trusted root.
	top := path[len(path)-1]
	if bytes.Equal(top.Raw, trustedRoot.Raw) {
		return nil
	}
	if top.Issuer.CommonName != trustedRoot.Subject.CommonName {
		return errors.Wrapf(errors.ErrUntrustedRoot,
			"%q names issuer %q, trusted root is %q",
			top.Subject.CommonName, top.Issuer.CommonName, trustedRoot.Subject.CommonName)
	}
	if err := top.CheckSignatureFrom(trustedRoot); err != nil {
		return errors.Wrapf(errors.ErrUntrustedRoot,
			"signature of %q does not verify against trusted root %q: %v",
			top.Subject.CommonName, trustedRoot.Subject.CommonName, err)
	}
	return nil
}

func checkValidityWindow(cert *x509.Certificate, at time.Time) error {
	if at.Before(cert.NotBefore) || at.After(cert.NotAfter) {
		return errors.Wrapf(errors.ErrExpiredCertificate,
			"%q valid %s to %s, checked at %s",
			cert.Subject.CommonName,
			cert.NotBefore.UTC().Format(time.RFC3339),
			cert.NotAfter.UTC().Format(time.RFC3339),
			at.UTC().Format(time.RFC3339))
	}
	return nil
}

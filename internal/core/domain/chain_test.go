package domain

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

// issueLeaf signs a fresh leaf of the given role through the bootstrapped
// hierarchy and returns the certificate plus the issuing chain.
func issueLeaf(t *testing.T, h *Hierarchy, role Role, id string, serviceID *uint32) *SignedCertificate {
	t.Helper()

	authority, err := h.AuthorityForRole(role, serviceID)
	require.NoError(t, err)
	require.NoError(t, authority.Load(true, nil))

	credential, err := h.CredentialFor(role, uuidPtr(id), serviceID)
	require.NoError(t, err)
	request, err := credential.CreateRequest(nil, false)
	require.NoError(t, err)

	signed, err := authority.Sign(request)
	require.NoError(t, err)
	return signed
}

func loadRootCert(t *testing.T, h *Hierarchy) *x509.Certificate {
	t.Helper()
	root, err := h.Root()
	require.NoError(t, err)
	require.NoError(t, root.Load(false, nil))
	return root.Certificate()
}

func TestValidateChainEndToEnd(t *testing.T) {
	h, _ := newTestHierarchy(t)
	rootCert := loadRootCert(t, h)

	tests := []struct {
		name      string
		role      Role
		serviceID *uint32
		chainLen  int
	}{
		{name: "account", role: RoleAccount, chainLen: 1},
		{name: "network data", role: RoleNetworkData, chainLen: 1},
		{name: "service", role: RoleService, serviceID: sidPtr(testServiceID), chainLen: 2},
		{name: "member", role: RoleMember, serviceID: sidPtr(testServiceID), chainLen: 3},
		{name: "app", role: RoleApp, serviceID: sidPtr(testServiceID), chainLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := issueLeaf(t, h, tt.role, "11111111-1111-1111-1111-111111111111", tt.serviceID)
			require.Len(t, signed.Chain, tt.chainLen)
			assert.NoError(t, ValidateChain(signed.Certificate, signed.Chain, rootCert))
		})
	}
}

func TestValidateChainRootItselfValidates(t *testing.T) {
	h, _ := newTestHierarchy(t)
	rootCert := loadRootCert(t, h)
	assert.NoError(t, ValidateChain(rootCert, nil, rootCert))
}

func TestValidateChainBrokenLink(t *testing.T) {
	h, _ := newTestHierarchy(t)
	rootCert := loadRootCert(t, h)

	signed := issueLeaf(t, h, RoleMember, "11111111-1111-1111-1111-111111111111", sidPtr(testServiceID))

	// Drop the first intermediate: the leaf's issuer no longer matches.
	err := ValidateChain(signed.Certificate, signed.Chain[1:], rootCert)
	assert.ErrorIs(t, err, errors.ErrChainBroken)

	// Swap two intermediates: linkage breaks mid-chain.
	swapped := []*x509.Certificate{signed.Chain[1], signed.Chain[0], signed.Chain[2]}
	err = ValidateChain(signed.Certificate, swapped, rootCert)
	assert.ErrorIs(t, err, errors.ErrChainBroken)
}

func TestValidateChainUntrustedRoot(t *testing.T) {
	h, _ := newTestHierarchy(t)
	signed := issueLeaf(t, h, RoleAccount, "11111111-1111-1111-1111-111111111111", nil)

	// A structurally identical hierarchy on the same domain, but with
	// different keys. Its root must not anchor our chain.
	foreign, _ := newTestHierarchy(t)
	foreignRoot := loadRootCert(t, foreign)

	err := ValidateChain(signed.Certificate, signed.Chain, foreignRoot)
	assert.ErrorIs(t, err, errors.ErrUntrustedRoot)
}

func TestValidateChainExpired(t *testing.T) {
	h, _ := newTestHierarchy(t)
	rootCert := loadRootCert(t, h)
	signed := issueLeaf(t, h, RoleAccount, "11111111-1111-1111-1111-111111111111", nil)

	// Two years out, the one-year leaf has expired but the chain has not.
	at := time.Now().Add(2 * 365 * 24 * time.Hour)
	err := ValidateChainAt(signed.Certificate, signed.Chain, rootCert, at)
	assert.ErrorIs(t, err, errors.ErrExpiredCertificate)

	// Before issuance the leaf is not yet valid either.
	err = ValidateChainAt(signed.Certificate, signed.Chain, rootCert, time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, errors.ErrExpiredCertificate)
}

func TestValidateChainNilInputs(t *testing.T) {
	h, _ := newTestHierarchy(t)
	rootCert := loadRootCert(t, h)
	signed := issueLeaf(t, h, RoleAccount, "11111111-1111-1111-1111-111111111111", nil)

	assert.ErrorIs(t, ValidateChain(nil, nil, rootCert), errors.ErrChainBroken)
	assert.ErrorIs(t, ValidateChain(signed.Certificate, signed.Chain, nil), errors.ErrUntrustedRoot)
}

// The persisted certificate file round-trips through the PEM codec with the
// chain intact, so a validation built from storage behaves like one built
// from the signing response.
func TestValidateChainFromStorage(t *testing.T) {
	h, store := newTestHierarchy(t)
	rootCert := loadRootCert(t, h)

	credential, err := h.CredentialFor(RoleMember, uuidPtr("55555555-5555-5555-5555-555555555555"), sidPtr(testServiceID))
	require.NoError(t, err)
	request, err := credential.CreateRequest(nil, false)
	require.NoError(t, err)

	members := loadedAuthority(t, h, func() (*IssuingAuthority, error) {
		return h.MembersAuthority(testServiceID)
	})
	signed, err := members.Sign(request)
	require.NoError(t, err)
	require.NoError(t, credential.AbsorbSigned(signed.Certificate, signed.Chain))
	require.NoError(t, credential.Save(nil, false))

	data, err := store.Read(credential.certPath())
	require.NoError(t, err)
	certs, err := ParseCertificatesPEM(data)
	require.NoError(t, err)
	require.Len(t, certs, 4)

	assert.NoError(t, ValidateChain(certs[0], certs[1:], rootCert))
}

// Guard against configuration drift: the depth constraints the hierarchy is
// built around must hold in the default configuration.
func TestDefaultDepthsDecreaseTowardLeaves(t *testing.T) {
	cfg := ports.DefaultConfiguration("example.net")
	assert.Equal(t, 3, cfg.Authority(ports.AuthorityRoot).MaxChainDepth)
	assert.Equal(t, 2, cfg.Authority(ports.AuthorityServices).MaxChainDepth)
	assert.Equal(t, 1, cfg.Authority(ports.AuthorityService).MaxChainDepth)
	assert.Equal(t, 0, cfg.Authority(ports.AuthorityMembers).MaxChainDepth)
	assert.Equal(t, 0, cfg.Authority(ports.AuthorityApps).MaxChainDepth)
	assert.Equal(t, 0, cfg.Authority(ports.AuthorityAccounts).MaxChainDepth)
}

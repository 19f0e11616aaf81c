package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

func newBareHierarchy() *Hierarchy {
	return NewHierarchy(testNetwork, ports.DefaultConfiguration(testNetwork.Domain()), nil, nil)
}

func TestHierarchyCommonNames(t *testing.T) {
	h := newBareHierarchy()

	root, err := h.Root()
	require.NoError(t, err)
	assert.Equal(t, "example.net", root.CommonName())

	accounts, err := h.AccountsAuthority()
	require.NoError(t, err)
	assert.Equal(t, "accounts-ca.example.net", accounts.CommonName())

	services, err := h.ServicesAuthority()
	require.NoError(t, err)
	assert.Equal(t, "services-ca.example.net", services.CommonName())

	service, err := h.ServiceAuthority(9)
	require.NoError(t, err)
	assert.Equal(t, "service-ca-9.example.net", service.CommonName())

	members, err := h.MembersAuthority(9)
	require.NoError(t, err)
	assert.Equal(t, "members-ca-9.example.net", members.CommonName())

	apps, err := h.AppsAuthority(9)
	require.NoError(t, err)
	assert.Equal(t, "apps-ca-9.example.net", apps.CommonName())
}

func TestIssuerCommonName(t *testing.T) {
	h := newBareHierarchy()

	tests := []struct {
		role      Role
		serviceID *uint32
		want      string
	}{
		{RoleAccountsCA, nil, "example.net"},
		{RoleServicesCA, nil, "example.net"},
		{RoleAccount, nil, "accounts-ca.example.net"},
		{RoleAccountData, nil, "accounts-ca.example.net"},
		{RoleServiceCA, sidPtr(5), "services-ca.example.net"},
		{RoleNetworkData, nil, "services-ca.example.net"},
		{RoleMembersCA, sidPtr(5), "service-ca-5.example.net"},
		{RoleAppsCA, sidPtr(5), "service-ca-5.example.net"},
		{RoleService, sidPtr(5), "service-ca-5.example.net"},
		{RoleServiceData, sidPtr(5), "service-ca-5.example.net"},
		{RoleMember, sidPtr(5), "members-ca-5.example.net"},
		{RoleMemberData, sidPtr(5), "members-ca-5.example.net"},
		{RoleApp, sidPtr(5), "apps-ca-5.example.net"},
		{RoleAppData, sidPtr(5), "apps-ca-5.example.net"},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			got, err := h.IssuerCommonName(tt.role, tt.serviceID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIssuerCommonNameNeedsServiceID(t *testing.T) {
	h := newBareHierarchy()
	_, err := h.IssuerCommonName(RoleMember, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidIdentity)

	_, err = h.IssuerCommonName(RoleAnonymous, nil)
	assert.ErrorIs(t, err, errors.ErrUnknownRole)
}

func TestAuthorityForRole(t *testing.T) {
	h := newBareHierarchy()

	// Every encodable role resolves to the authority whose Common Name
	// IssuerCommonName predicts.
	for _, spec := range roleTable {
		var serviceID *uint32
		if spec.requiresServiceID {
			serviceID = sidPtr(8)
		}
		authority, err := h.AuthorityForRole(spec.role, serviceID)
		require.NoError(t, err, "role %v", spec.role)

		want, err := h.IssuerCommonName(spec.role, serviceID)
		require.NoError(t, err)
		assert.Equal(t, want, authority.CommonName(), "role %v", spec.role)
	}

	_, err := h.AuthorityForRole(RoleService, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidIdentity)

	_, err = h.AuthorityForRole(RoleAnonymous, nil)
	assert.ErrorIs(t, err, errors.ErrUnknownRole)
}

func TestAuthorityPoliciesFromConfiguration(t *testing.T) {
	h := newBareHierarchy()

	root, err := h.Root()
	require.NoError(t, err)
	assert.True(t, root.Policy.SignsCACertificates)
	assert.Contains(t, root.Policy.AcceptedRoles, RoleAccountsCA)
	assert.Contains(t, root.Policy.AcceptedRoles, RoleServicesCA)
	assert.Len(t, root.Policy.AcceptedRoles, 2)
	assert.Equal(t, 2, root.Policy.AcceptedRoles[RoleServicesCA].MaxChainDepth)

	members, err := h.MembersAuthority(1)
	require.NoError(t, err)
	assert.False(t, members.Policy.SignsCACertificates)
	assert.Contains(t, members.Policy.AcceptedRoles, RoleMember)
	assert.Contains(t, members.Policy.AcceptedRoles, RoleMemberData)
	assert.Equal(t, 365, members.Policy.AcceptedRoles[RoleMember].ValidityDays)
}

func TestCredentialFor(t *testing.T) {
	h := newBareHierarchy()

	credential, err := h.CredentialFor(RoleMember, uuidPtr("11111111-1111-1111-1111-111111111111"), sidPtr(3))
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111.member-3.example.net", credential.CommonName())
	assert.Equal(t, RoleMember, credential.Role())
	assert.False(t, credential.IsCA())

	_, err = h.CredentialFor(RoleMember, nil, sidPtr(3))
	assert.ErrorIs(t, err, errors.ErrInvalidIdentity)
}

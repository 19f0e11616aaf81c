package domain

import (
	"testing"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

func TestRoleFromToken(t *testing.T) {
	for _, spec := range roleTable {
		role, err := RoleFromToken(spec.token)
		if err != nil {
			t.Errorf("RoleFromToken(%q) failed: %v", spec.token, err)
			continue
		}
		if role != spec.role {
			t.Errorf("RoleFromToken(%q) = %v, want %v", spec.token, role, spec.role)
		}
	}

	if _, err := RoleFromToken("emperor"); !errors.Is(err, errors.ErrUnknownRole) {
		t.Errorf("RoleFromToken on an unknown token = %v, want UNKNOWN_ROLE", err)
	}
	// RoleFromToken is exact; a service-id suffix is not a token.
	if _, err := RoleFromToken("member-42"); !errors.Is(err, errors.ErrUnknownRole) {
		t.Errorf("RoleFromToken(\"member-42\") = %v, want UNKNOWN_ROLE", err)
	}
}

func TestMatchRoleLabel(t *testing.T) {
	sid := func(v uint32) *uint32 { return &v }

	tests := []struct {
		name     string
		label    string
		wantRole Role
		wantSID  *uint32
		wantErr  error
	}{
		{
			name:     "bare token",
			label:    "accounts-ca",
			wantRole: RoleAccountsCA,
		},
		{
			name:     "token with service id",
			label:    "member-42",
			wantRole: RoleMember,
			wantSID:  sid(42),
		},
		{
			name:     "service id zero",
			label:    "service-0",
			wantRole: RoleService,
			wantSID:  sid(0),
		},
		{
			name:     "service id at the upper bound",
			label:    "app-4294967295",
			wantRole: RoleApp,
			wantSID:  sid(4294967295),
		},
		{
			name:    "service id one past the upper bound",
			label:   "app-4294967296",
			wantErr: errors.ErrServiceIDOutOfRange,
		},
		{
			name:    "service id absurdly large",
			label:   "member-99999999999999999999",
			wantErr: errors.ErrServiceIDOutOfRange,
		},

		// Longest-token matching: labels for roles that share a textual
		// prefix must resolve to the longer role, never the shorter one
		// plus garbage.
		{
			name:     "members-ca is not member",
			label:    "members-ca-7",
			wantRole: RoleMembersCA,
			wantSID:  sid(7),
		},
		{
			name:     "account-data is not account",
			label:    "account-data",
			wantRole: RoleAccountData,
		},
		{
			name:     "service-data is not service",
			label:    "service-data-3",
			wantRole: RoleServiceData,
			wantSID:  sid(3),
		},
		{
			name:     "service-ca is not service",
			label:    "service-ca-3",
			wantRole: RoleServiceCA,
			wantSID:  sid(3),
		},
		{
			name:     "app-data is not app",
			label:    "app-data-1",
			wantRole: RoleAppData,
			wantSID:  sid(1),
		},

		{
			name:    "unknown token",
			label:   "granny-7",
			wantErr: errors.ErrUnknownRole,
		},
		{
			name:    "trailing hyphen without digits",
			label:   "member-",
			wantErr: errors.ErrUnknownRole,
		},
		{
			name:    "non-decimal suffix",
			label:   "member-4x2",
			wantErr: errors.ErrUnknownRole,
		},
		{
			name:    "empty label",
			label:   "",
			wantErr: errors.ErrUnknownRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, serviceID, err := matchRoleLabel(tt.label)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("matchRoleLabel(%q) error = %v, want %v", tt.label, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("matchRoleLabel(%q) failed: %v", tt.label, err)
			}
			if role != tt.wantRole {
				t.Errorf("role = %v, want %v", role, tt.wantRole)
			}
			if (serviceID == nil) != (tt.wantSID == nil) {
				t.Fatalf("service id presence = %v, want %v", serviceID != nil, tt.wantSID != nil)
			}
			if serviceID != nil && *serviceID != *tt.wantSID {
				t.Errorf("service id = %d, want %d", *serviceID, *tt.wantSID)
			}
		})
	}
}

func TestRoleProperties(t *testing.T) {
	caRoles := []Role{RoleServiceCA, RoleAccountsCA, RoleServicesCA, RoleMembersCA, RoleAppsCA}
	for _, role := range caRoles {
		if !role.IsCA() {
			t.Errorf("%v should be a CA role", role)
		}
		if role.RequiresIdentifier() {
			t.Errorf("%v should not carry an identifier", role)
		}
		if role.MinSegments() != 1 {
			t.Errorf("%v names carry one label ahead of the domain, MinSegments() = %d", role, role.MinSegments())
		}
	}

	leafRoles := []Role{RoleAccount, RoleAccountData, RoleMember, RoleMemberData,
		RoleService, RoleServiceData, RoleApp, RoleAppData, RoleNetworkData}
	for _, role := range leafRoles {
		if role.IsCA() {
			t.Errorf("%v should not be a CA role", role)
		}
		if !role.RequiresIdentifier() {
			t.Errorf("%v should carry an identifier", role)
		}
		if role.MinSegments() != 2 {
			t.Errorf("%v names carry two labels ahead of the domain, MinSegments() = %d", role, role.MinSegments())
		}
	}

	if RoleUnknown.Token() != "" || RoleAnonymous.Token() != "" {
		t.Error("non-certificate roles must have no token")
	}
	if RoleAnonymous.String() != "anonymous" {
		t.Errorf("RoleAnonymous.String() = %q", RoleAnonymous.String())
	}
}

package domain

import (
	"sort"
	"strconv"
	"strings"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// Role is the fixed category of actor encoded in a certificate's Common
// Name. The set is closed; adding a role is a wire-format change.
type Role int

const (
	RoleUnknown Role = iota
	RoleAccount
	RoleAccountData
	RoleMember
	RoleMemberData
	RoleService
	RoleServiceData
	RoleServiceCA
	RoleApp
	RoleAppData
	RoleAccountsCA
	RoleServicesCA
	RoleMembersCA
	RoleAppsCA
	RoleNetworkData

	// RoleAnonymous marks an unauthenticated caller at the API boundary.
	// It never appears in a certificate.
	RoleAnonymous
)

// roleSpec is one row of the identity grammar: the textual token a role
// uses inside Common Names and which components its names must carry.
type roleSpec struct {
	role               Role
	token              string
	requiresIdentifier bool
	requiresServiceID  bool
	isCA               bool
}

// roleTable is the authoritative grammar table. Label matching selects the
// longest token that is a prefix of the candidate label, never the table
// order, so roles sharing a textual prefix (member vs. members-ca,
// account vs. account-data) cannot cross-match.
var roleTable = []roleSpec{
	{RoleAccount, "account", true, false, false},
	{RoleAccountData, "account-data", true, false, false},
	{RoleMember, "member", true, true, false},
	{RoleMemberData, "member-data", true, true, false},
	{RoleService, "service", true, true, false},
	{RoleServiceData, "service-data", true, true, false},
	{RoleServiceCA, "service-ca", false, true, true},
	{RoleApp, "app", true, true, false},
	{RoleAppData, "app-data", true, true, false},
	{RoleAccountsCA, "accounts-ca", false, false, true},
	{RoleServicesCA, "services-ca", false, false, true},
	{RoleMembersCA, "members-ca", false, true, true},
	{RoleAppsCA, "apps-ca", false, true, true},
	{RoleNetworkData, "network-data", true, false, false},
}

// rolesByTokenLength caches the grammar table sorted longest token first.
var rolesByTokenLength = func() []roleSpec {
	sorted := make([]roleSpec, len(roleTable))
	copy(sorted, roleTable)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].token) > len(sorted[j].token)
	})
	return sorted
}()

func (r Role) spec() (roleSpec, bool) {
	for _, s := range roleTable {
		if s.role == r {
			return s, true
		}
	}
	return roleSpec{}, false
}

// Token returns the textual tag the role uses inside Common Names.
func (r Role) Token() string {
	s, ok := r.spec()
	if !ok {
		return ""
	}
	return s.token
}

// RequiresIdentifier reports whether names for this role carry a UUID label.
func (r Role) RequiresIdentifier() bool {
	s, ok := r.spec()
	return ok && s.requiresIdentifier
}

// RequiresServiceID reports whether names for this role carry a service id
// suffix on the role label.
func (r Role) RequiresServiceID() bool {
	s, ok := r.spec()
	return ok && s.requiresServiceID
}

// IsCA reports whether the role denotes a certifying authority.
func (r Role) IsCA() bool {
	s, ok := r.spec()
	return ok && s.isCA
}

// MinSegments returns the minimum number of dot-separated labels a Common
// Name for this role carries ahead of the network domain.
func (r Role) MinSegments() int {
	if r.RequiresIdentifier() {
		return 2
	}
	return 1
}

// String returns the role token, or a marker for the non-certificate roles.
func (r Role) String() string {
	switch r {
	case RoleAnonymous:
		return "anonymous"
	case RoleUnknown:
		return "unknown"
	}
	return r.Token()
}

// RoleFromToken resolves an exact role token. It does not parse service-id
// suffixes; use matchRoleLabel for full label matching.
func RoleFromToken(token string) (Role, error) {
	for _, s := range roleTable {
		if s.token == token {
			return s.role, nil
		}
	}
	return RoleUnknown, errors.Wrapf(errors.ErrUnknownRole, "token %q", token)
}

// matchRoleLabel resolves a role label of the form <token>[-<service_id>]
// by longest-token matching. The returned service id is nil when the label
// carries none.
func matchRoleLabel(label string) (Role, *uint32, error) {
	for _, s := range rolesByTokenLength {
		if !strings.HasPrefix(label, s.token) {
			continue
		}
		rest := label[len(s.token):]
		if rest == "" {
			return s.role, nil, nil
		}
		if !strings.HasPrefix(rest, "-") {
			continue
		}
		digits := rest[1:]
		if digits == "" || !isDecimal(digits) {
			continue
		}
		id, err := strconv.ParseUint(digits, 10, 64)
		if err != nil || id > maxServiceID {
			return RoleUnknown, nil, errors.Wrapf(errors.ErrServiceIDOutOfRange, "service id %q in label %q", digits, label)
		}
		sid := uint32(id)
		return s.role, &sid, nil
	}
	return RoleUnknown, nil, errors.Wrapf(errors.ErrUnknownRole, "label %q", label)
}

func isDecimal(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
